// Binary file detection for early rejection of non-text files.
// Markers only live in text, so binary content is skipped before the line
// state machine ever sees it.
package scanner

import (
	"bytes"
	"path/filepath"
	"strings"
)

// BinaryDetector handles detection of binary files that should not be scanned
type BinaryDetector struct {
	binaryExtensions map[string]bool
}

// NewBinaryDetector creates a new binary file detector
func NewBinaryDetector() *BinaryDetector {
	extensions := map[string]bool{
		// Images
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".bmp": true, ".ico": true, ".webp": true, ".tiff": true,

		// Fonts
		".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,

		// Archives
		".zip": true, ".tar": true, ".gz": true, ".bz2": true,
		".xz": true, ".7z": true, ".rar": true, ".jar": true,

		// Executables and objects
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".a": true, ".o": true, ".obj": true, ".bin": true, ".wasm": true,

		// Media
		".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
		".wav": true, ".flac": true, ".ogg": true, ".webm": true,

		// Documents
		".pdf": true, ".doc": true, ".docx": true, ".xls": true,
		".xlsx": true, ".ppt": true, ".pptx": true,

		// Compiled bytecode
		".pyc": true, ".class": true,
	}
	return &BinaryDetector{binaryExtensions: extensions}
}

// IsBinaryByExtension performs fast binary detection by file extension
func (bd *BinaryDetector) IsBinaryByExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return bd.binaryExtensions[ext]
}

// magicNumbers are file signatures that identify binary formats regardless
// of extension
var magicNumbers = [][]byte{
	{0x7F, 'E', 'L', 'F'},    // ELF
	{0x89, 'P', 'N', 'G'},    // PNG
	{0xFF, 0xD8, 0xFF},       // JPEG
	{'G', 'I', 'F', '8'},     // GIF
	{'P', 'K', 0x03, 0x04},   // ZIP
	{0x1F, 0x8B},             // gzip
	{'%', 'P', 'D', 'F'},     // PDF
	{0xCF, 0xFA, 0xED, 0xFE}, // Mach-O
	{'M', 'Z'},               // PE/COFF
	{0x00, 0x61, 0x73, 0x6D}, // WASM
}

// IsBinaryContent inspects the head of a file for binary signatures or
// embedded NUL bytes.
func (bd *BinaryDetector) IsBinaryContent(head []byte) bool {
	for _, magic := range magicNumbers {
		if bytes.HasPrefix(head, magic) {
			return true
		}
	}
	return bytes.IndexByte(head, 0) >= 0
}
