package services

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

// windowsDeviceNames are refused as upload names even off Windows so the
// upload directory stays portable.
var windowsDeviceNames = map[string]bool{
	"CON": true, "AUX": true, "COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "PRN": true, "NUL": true,
}

// SanitizeFilename reduces a client supplied filename to a flat ASCII name
// made of letters, digits, '_', '-' and '.'. It returns "" when nothing
// usable is left.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune(' ')
		case r > unicode.MaxASCII:
		default:
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	joined := strings.Join(fields, "_")

	b.Reset()
	for _, r := range joined {
		if r == '_' || r == '-' || r == '.' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return ""
	}
	if base, _, _ := strings.Cut(out, "."); windowsDeviceNames[strings.ToUpper(base)] {
		out = "_" + out
	}
	return out
}

type UploadService struct {
	dir    string
	logger zerolog.Logger
}

func NewUploadService(dir string, logger zerolog.Logger) *UploadService {
	return &UploadService{
		dir:    dir,
		logger: logger,
	}
}

// SaveImage stores src under the sanitized form of filename. created reports
// whether the file did not exist before, so callers can undo a fresh write.
func (s *UploadService) SaveImage(filename string, src io.Reader) (name string, created bool, err error) {
	name = SanitizeFilename(filename)
	if name == "" {
		return "", false, fmt.Errorf("%w: invalid image filename", ErrValidation)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStore, err)
	}

	path := filepath.Join(s.dir, name)
	_, statErr := os.Stat(path)
	created = errors.Is(statErr, fs.ErrNotExist)

	dst, err := os.Create(path)
	if err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("Error creating upload file")
		return "", false, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		if created {
			os.Remove(path)
		}
		s.logger.Error().Err(err).Str("file", name).Msg("Error writing upload file")
		return "", false, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := dst.Close(); err != nil {
		if created {
			os.Remove(path)
		}
		return "", false, fmt.Errorf("%w: %v", ErrStore, err)
	}

	s.logger.Info().Str("file", name).Bool("created", created).Msg("Image uploaded")
	return name, created, nil
}

// Discard removes an uploaded file. Missing files are ignored.
func (s *UploadService) Discard(name string) {
	if name == "" {
		return
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("file", name).Msg("Failed to remove upload file")
	}
}
