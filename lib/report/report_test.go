// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/staging/lib/validate"
)

func sampleResult() *validate.Result {
	collector := validate.NewCollector("release-00001")
	artifact := collector.Child("checksum").Child("org.example:a:jar:1.0")
	artifact.Info("OK: SHA-1")
	artifact.Error("MISSING: MD5")
	collector.Child("archive").Child("org.example:a:jar:1.0").Warning("jar has no META-INF/MANIFEST.MF")
	return collector.Result()
}

func render(t *testing.T, format Format, options Options) string {
	t.Helper()
	var buffer bytes.Buffer
	if err := Write(&buffer, sampleResult(), format, options); err != nil {
		t.Fatalf("Write(%s): %v", format, err)
	}
	return buffer.String()
}

func TestTextWithoutColor(t *testing.T) {
	output := render(t, Text, Options{})
	for _, want := range []string{
		"release-00001\n",
		"  checksum\n",
		"    org.example:a:jar:1.0\n",
		"      ✗ MISSING: MD5\n",
		"      ✓ OK: SHA-1\n",
		"INVALID: 1 errors, 1 warnings, 1 passed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("text output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Errorf("uncolored output contains escape sequences:\n%q", output)
	}
}

func TestTextWithColor(t *testing.T) {
	if output := render(t, Text, Options{Color: true}); !strings.Contains(output, "\x1b[") {
		t.Errorf("colored output has no escape sequences:\n%q", output)
	}
}

func TestMarkdown(t *testing.T) {
	output := render(t, Markdown, Options{})
	for _, want := range []string{
		"# Validation report for release-00001\n",
		"**INVALID: 1 errors, 1 warnings, 1 passed**",
		"## `checksum`",
		"### `org.example:a:jar:1.0`",
		"- ❌ **error:** MISSING: MD5",
		"- ⚠️ warning: jar has no META-INF/MANIFEST.MF",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("markdown output missing %q:\n%s", want, output)
		}
	}
}

func TestHTMLEscapesMessages(t *testing.T) {
	collector := validate.NewCollector("release-00001")
	collector.Child("pom-coordinates").Error(`groupId mismatch: POM declares "<script>"`)
	var buffer bytes.Buffer
	if err := Write(&buffer, collector.Result(), HTML, Options{Title: "Nightly <checks>"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	output := buffer.String()
	if strings.Contains(output, "<script>") {
		t.Errorf("HTML output contains an unescaped message:\n%s", output)
	}
	for _, want := range []string{"<title>Nightly &lt;checks&gt;</title>", "<h1>", "<li>"} {
		if !strings.Contains(output, want) {
			t.Errorf("HTML output missing %q:\n%s", want, output)
		}
	}
}

func TestJSON(t *testing.T) {
	var decoded validate.Result
	if err := json.Unmarshal([]byte(render(t, JSON, Options{})), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.IsValid() || len(decoded.Children) != 2 {
		t.Errorf("decoded tree: valid=%v children=%d", decoded.IsValid(), len(decoded.Children))
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"": Text, "md": Markdown, "HTML": HTML, "json": JSON} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v, want %q", name, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(pdf): %v, want ErrUnknownFormat", err)
	}
}
