package services

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/utils"
)

type Violation string

const (
	ViolationMissing Violation = "missing"
	ViolationSize    Violation = "size"
	ViolationType    Violation = "type"
)

// FileRejectedError reports why a file was not attached.
type FileRejectedError struct {
	Kind      models.FileKind
	Violation Violation
	Message   string
}

func (e *FileRejectedError) Error() string { return e.Message }

type FileRule struct {
	MaxSize   int64
	MediaType string
	Label     string // human size, ex: "10MB"
	Noun      string // "CV" | "Video"
	TypeHint  string
}

var FileRules = map[models.FileKind]FileRule{
	models.FileKindCV: {
		MaxSize:   10 << 20,
		MediaType: "application/pdf",
		Label:     "10MB",
		Noun:      "CV",
		TypeHint:  "a PDF file only",
	},
	models.FileKindVideo: {
		MaxSize:   50 << 20,
		MediaType: "video/mp4",
		Label:     "50MB",
		Noun:      "Video",
		TypeHint:  "an MP4 video only",
	},
}

// ValidateFile is the attach-time gate. Size is checked before type and the
// limit itself is accepted.
func ValidateFile(a *models.Attachment, kind models.FileKind) error {
	rule, ok := FileRules[kind]
	if !ok {
		return utils.E(utils.CodeInvalidArgument, "ValidateFile", "unknown file kind", nil)
	}
	if a == nil {
		return &FileRejectedError{Kind: kind, Violation: ViolationMissing, Message: "No file selected"}
	}
	if a.Size > rule.MaxSize {
		return &FileRejectedError{
			Kind:      kind,
			Violation: ViolationSize,
			Message:   fmt.Sprintf("%s file must be less than %s", rule.Noun, rule.Label),
		}
	}
	if a.ContentType != rule.MediaType {
		return &FileRejectedError{
			Kind:      kind,
			Violation: ViolationType,
			Message:   "Invalid file type. Please upload " + rule.TypeHint,
		}
	}
	return nil
}

// LoadAttachment reads a multipart upload into memory and runs it through
// ValidateFile. The declared part type wins; it is sniffed only when the
// browser sent nothing useful.
func LoadAttachment(fh *multipart.FileHeader, kind models.FileKind) (*models.Attachment, error) {
	const op = "LoadAttachment"

	if fh == nil {
		return nil, ValidateFile(nil, kind)
	}

	a := &models.Attachment{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: declaredType(fh.Header.Get("Content-Type")),
	}
	// reject oversize uploads before buffering them
	if err := ValidateFile(&models.Attachment{Size: a.Size, ContentType: FileRules[kind].MediaType}, kind); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to open upload", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, FileRules[kind].MaxSize+1)); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to read upload", err)
	}
	a.Data = buf.Bytes()
	a.Size = int64(len(a.Data))

	if a.ContentType == "" || a.ContentType == "application/octet-stream" {
		a.ContentType = declaredType(mimetype.Detect(a.Data).String())
	}

	if err := ValidateFile(a, kind); err != nil {
		return nil, err
	}
	return a, nil
}

func declaredType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(v)
	}
	return mt
}
