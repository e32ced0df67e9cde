package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Lllllllleong/documentocr/internal/models"
	"github.com/go-ini/ini"
)

const (
	settingsSection = "settings"

	keyExportFormat = "export_format"
	keyAuthMethod   = "authentication_method"
	keyMaxPages     = "max_pages_per_part"
	keyOCRTimeout   = "ocr_timeout"
	keyOCRLanguage  = "ocr_language"
	keyChunkSizeMB  = "upload_chunk_size_mb"
)

// Google Docs refuses OCR on PDFs over 80 pages; stay safely below.
const DefaultMaxPagesPerPart = 75

var defaults = map[string]string{
	keyExportFormat: string(models.FormatTXT),
	keyAuthMethod:   string(models.AuthClientSecret),
	keyMaxPages:     strconv.Itoa(DefaultMaxPagesPerPart),
	keyOCRTimeout:   "10m",
	keyOCRLanguage:  "",
	keyChunkSizeMB:  "5",
}

// Settings is the validated configuration for one run.
type Settings struct {
	Dirs            Dirs
	ExportFormat    models.ExportFormat
	AuthMethod      models.AuthMethod
	MaxPagesPerPart int
	OCRTimeout      time.Duration
	OCRLanguage     string
	UploadChunkSize int
}

// ConfigFile is the path of config.ini.
func (d Dirs) ConfigFile() string {
	return filepath.Join(d.ConfigDir, "config.ini")
}

// CredentialsFile is the path of the file the configured auth method needs.
func (s *Settings) CredentialsFile() string {
	return filepath.Join(s.Dirs.ConfigDir, s.AuthMethod.CredentialsFile())
}

// Load creates missing directories, reads config.ini (writing defaults on first run),
// applies env overrides and validates everything before any file or network work.
func Load(dirs Dirs) (*Settings, error) {
	if err := dirs.Create(); err != nil {
		return nil, err
	}

	file, err := loadOrCreate(dirs.ConfigFile())
	if err != nil {
		return nil, err
	}
	section := file.Section(settingsSection)

	value := func(key, env string) string {
		v := section.Key(key).MustString(defaults[key])
		if env != "" {
			v = GetEnv(env, v)
		}
		return v
	}

	settings := &Settings{Dirs: dirs}

	rawFormat := value(keyExportFormat, "OCRARIAN_EXPORT_FORMAT")
	format, ok := models.ParseExportFormat(rawFormat)
	if !ok {
		return nil, &IncorrectExportFormatError{Value: rawFormat, Available: models.ExportFormats()}
	}
	settings.ExportFormat = format

	rawMethod := value(keyAuthMethod, "OCRARIAN_AUTH_METHOD")
	method, ok := models.ParseAuthMethod(rawMethod)
	if !ok {
		return nil, &IncorrectAuthMethodError{Value: rawMethod, Available: models.AuthMethods()}
	}
	settings.AuthMethod = method

	if settings.MaxPagesPerPart, err = positiveInt(keyMaxPages, value(keyMaxPages, "OCRARIAN_MAX_PAGES")); err != nil {
		return nil, err
	}
	chunkMB, err := positiveInt(keyChunkSizeMB, value(keyChunkSizeMB, ""))
	if err != nil {
		return nil, err
	}
	settings.UploadChunkSize = chunkMB * 1024 * 1024

	timeout, err := time.ParseDuration(value(keyOCRTimeout, "OCRARIAN_OCR_TIMEOUT"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("%w: %s must be a positive duration", ErrInvalidSetting, keyOCRTimeout)
	}
	settings.OCRTimeout = timeout
	settings.OCRLanguage = value(keyOCRLanguage, "OCRARIAN_OCR_LANGUAGE")

	if _, err := os.Stat(settings.CredentialsFile()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingCredentialsFileError{File: method.CredentialsFile(), ConfigDir: dirs.ConfigDir}
		}
		return nil, fmt.Errorf("failed to stat credentials file: %w", err)
	}

	return settings, nil
}

func loadOrCreate(path string) (*ini.File, error) {
	if _, err := os.Stat(path); err == nil {
		file, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return file, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	file := ini.Empty()
	section, err := file.NewSection(settingsSection)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{keyExportFormat, keyAuthMethod, keyMaxPages, keyOCRTimeout, keyOCRLanguage, keyChunkSizeMB} {
		if _, err := section.NewKey(key, defaults[key]); err != nil {
			return nil, err
		}
	}
	if err := file.SaveTo(path); err != nil {
		return nil, fmt.Errorf("failed to write default config to %s: %w", path, err)
	}
	slog.Info("Created default configuration.", "path", path)
	return file, nil
}

func positiveInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidSetting, key, raw)
	}
	return n, nil
}
