package constants

import "strings"

// Extensions and suffixes used to derive artifact slots from a document name.
const (
	SourceExt     = "md"
	PDFExt        = "pdf"
	RawExt        = ".txt"
	StructuredExt = ".json"
	ErrorExt      = ".error"
	TempSuffix    = "_temp"
	BackupMarker  = "_version"

	// BackupTimeLayout is the capture timestamp appended after BackupMarker.
	BackupTimeLayout = "20060102_150405"
	// LedgerTimeLayout is the processed_at column format.
	LedgerTimeLayout = "2006-01-02 15:04:05"

	PromptSnapshotSlot = "prompt_snapshot.txt"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
