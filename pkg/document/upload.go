package document

import (
	"path/filepath"
	"strings"
)

// AcceptedExtensions is the upload allow-list. Matching is a case-insensitive
// suffix match on the file name.
var AcceptedExtensions = []string{".pdf", ".epub", ".rm", ".rmdoc"}

// IsAcceptedUpload reports whether name ends in one of AcceptedExtensions.
func IsAcceptedUpload(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range AcceptedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// UploadFile is one file selected for upload.
type UploadFile struct {
	// Name is the original file name including its extension.
	Name string

	// Data is the full file content.
	Data []byte
}

// FilterUploads keeps the accepted files in their original order. Rejected
// files are dropped silently, they are not reported as errors.
func FilterUploads(files []UploadFile) []UploadFile {
	accepted := make([]UploadFile, 0, len(files))
	for _, f := range files {
		if IsAcceptedUpload(f.Name) {
			accepted = append(accepted, f)
		}
	}
	return accepted
}

// DisplayName strips the directory and the last extension from a file name:
// "reports/Q3 report.pdf" becomes "Q3 report". A name that is only an
// extension keeps its full base name.
func DisplayName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := filepath.Ext(base)
	if ext == "" || len(ext) == len(base) {
		return base
	}
	return strings.TrimSuffix(base, ext)
}
