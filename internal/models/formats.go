package models

import (
	"sort"
	"strings"
)

// ExportFormat is a Google Docs export target.
type ExportFormat string

const (
	FormatTXT  ExportFormat = "TXT"
	FormatDOCX ExportFormat = "DOCX"
	FormatODT  ExportFormat = "ODT"
	FormatRTF  ExportFormat = "RTF"
	FormatPDF  ExportFormat = "PDF"
	FormatHTML ExportFormat = "HTML"
	FormatEPUB ExportFormat = "EPUB"
)

// https://developers.google.com/drive/api/guides/ref-export-formats
var exportMIMETypes = map[ExportFormat]string{
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatODT:  "application/vnd.oasis.opendocument.text",
	FormatRTF:  "application/rtf",
	FormatPDF:  "application/pdf",
	FormatTXT:  "text/plain",
	FormatHTML: "application/zip", // zipped HTML
	FormatEPUB: "application/epub+zip",
}

// ParseExportFormat matches a configured value against the known formats.
func ParseExportFormat(s string) (ExportFormat, bool) {
	f := ExportFormat(strings.TrimSpace(s))
	_, ok := exportMIMETypes[f]
	return f, ok
}

// ExportFormats lists every known format name, sorted.
func ExportFormats() []string {
	names := make([]string, 0, len(exportMIMETypes))
	for f := range exportMIMETypes {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

func (f ExportFormat) MIME() string {
	return exportMIMETypes[f]
}

// Extension is the lowercase file extension used for output files, without the dot.
func (f ExportFormat) Extension() string {
	return strings.ToLower(string(f))
}

// AuthMethod selects how the remote service is authorized.
type AuthMethod string

const (
	AuthServiceAccount AuthMethod = "SERVICE_ACCOUNT"
	AuthClientSecret   AuthMethod = "CLIENT_SECRET"
)

func ParseAuthMethod(s string) (AuthMethod, bool) {
	m := AuthMethod(strings.TrimSpace(s))
	switch m {
	case AuthServiceAccount, AuthClientSecret:
		return m, true
	}
	return m, false
}

func AuthMethods() []string {
	return []string{string(AuthServiceAccount), string(AuthClientSecret)}
}

// CredentialsFile is the file in the config directory the method requires.
func (m AuthMethod) CredentialsFile() string {
	if m == AuthServiceAccount {
		return "service_account.json"
	}
	return "client_secret.json"
}
