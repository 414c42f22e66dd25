package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/careerportal/internal/models"
	"github.com/yoockh/careerportal/internal/utils"
)

const (
	MsgSubmissionFailed = "Submission failed"
	MsgNetworkFailure   = "Failed to submit application. Please check your connection and try again."

	// SubmittedAtLayout matches the millisecond UTC ISO-8601 form.
	SubmittedAtLayout = "2006-01-02T15:04:05.000Z"
)

// SubmissionError is a rejected or failed submission. Message is safe to show.
type SubmissionError struct {
	Status  int // 0 when the request never got a response
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SubmissionError) Unwrap() error { return e.Err }

type SubmissionService interface {
	Submit(ctx context.Context, app models.Application) error
}

type submissionClient struct {
	endpoint   string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewSubmissionClient posts applications to endpoint. No timeout is set on the
// default client; the request ends only on a response or a transport error.
func NewSubmissionClient(endpoint string, httpClient *http.Client, log *logrus.Logger) SubmissionService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logrus.New()
	}
	return &submissionClient{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: httpClient,
		log:        log,
	}
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *submissionClient) Submit(ctx context.Context, app models.Application) error {
	const op = "SubmissionClient.Submit"

	if c.endpoint == "" {
		return &SubmissionError{Message: MsgNetworkFailure, Err: utils.E(utils.CodeInternal, op, "submission endpoint is not configured", nil)}
	}

	body, contentType, err := EncodeApplication(app)
	if err != nil {
		return &SubmissionError{Message: MsgNetworkFailure, Err: utils.E(utils.CodeInternal, op, "failed to encode application", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return &SubmissionError{Message: MsgNetworkFailure, Err: utils.E(utils.CodeInternal, op, "failed to build request", err)}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SubmissionError{Message: MsgNetworkFailure, Err: utils.E(utils.CodeUnavailable, op, "request failed", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"job_id":  app.Job.ID,
			"has_cv":  app.Form.CV != nil,
			"has_vid": app.Form.Video != nil,
		}).Info("application submitted")
		return nil
	}

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &SubmissionError{
		Status:  resp.StatusCode,
		Message: rejectionMessage(payload),
		Err:     utils.E(utils.CodeUnavailable, op, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil),
	}
}

func rejectionMessage(payload []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return MsgSubmissionFailed
	}
	if parsed.Message == "" {
		return MsgSubmissionFailed
	}
	return parsed.Message
}

// EncodeApplication builds the multipart body. Text parts come first in a
// fixed order, followed by the files and the verification token.
func EncodeApplication(app models.Application) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range models.TextFields {
		v, _ := app.Form.Get(name)
		if err := w.WriteField(name, v); err != nil {
			return nil, "", err
		}
	}

	responsibilities, err := json.Marshal(nonNil(app.Job.Responsibilities))
	if err != nil {
		return nil, "", err
	}
	requirements, err := json.Marshal(nonNil(app.Job.Requirements))
	if err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"appliedRole", app.Job.Title},
		{"jobDepartment", app.Job.Department},
		{"jobLocation", app.Job.Location},
		{"jobType", app.Job.Type},
		{"jobDescription", app.Job.Description},
		{"jobResponsibilities", string(responsibilities)},
		{"jobRequirements", string(requirements)},
		{"submittedAt", app.SubmittedAt.UTC().Format(SubmittedAtLayout)},
	}
	for _, kv := range fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}

	if app.Form.CV == nil {
		return nil, "", errors.New("cv attachment is required")
	}
	if err := writeFile(w, string(models.FileKindCV), app.Form.CV); err != nil {
		return nil, "", err
	}
	if app.Form.Video != nil {
		if err := writeFile(w, string(models.FileKindVideo), app.Form.Video); err != nil {
			return nil, "", err
		}
	}

	if err := w.WriteField("recaptchaToken", app.Form.VerificationToken); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, a *models.Attachment) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(a.Name)))
	h.Set("Content-Type", a.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(a.Data)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
