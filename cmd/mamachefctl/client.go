package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mmynk/mamachef/internal/inline"
	"github.com/mmynk/mamachef/internal/models"
)

// client posts JSON to the Connect procedures and the REST proxy.
type client struct {
	http *resty.Client
	out  io.Writer
}

func newClient(apiURL, token string, timeout time.Duration, out io.Writer) *client {
	c := resty.New().
		SetBaseURL(apiURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &client{http: c, out: out}
}

// call posts body to procedure and pretty-prints the response.
func (c *client) call(procedure string, body interface{}) ([]byte, error) {
	raw, err := c.post(procedure, body)
	if err != nil {
		return nil, err
	}
	return raw, c.print(raw)
}

func (c *client) post(procedure string, body interface{}) ([]byte, error) {
	resp, err := c.http.R().SetBody(body).Post(procedure)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", procedure, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, remoteError(resp)
	}
	return resp.Body(), nil
}

// callMedia posts a media request. The returned media (at path in the
// response) is written to out when set and elided from the printed response.
func (c *client) callMedia(procedure string, body interface{}, path, out string) error {
	raw, err := c.post(procedure, body)
	if err != nil {
		return err
	}

	dataURL := gjson.GetBytes(raw, path).String()
	if dataURL != "" && out != "" {
		if err := writeDataURL(out, dataURL); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "saved %s\n", out)
	}
	if dataURL != "" {
		raw, err = sjson.SetBytes(raw, path, fmt.Sprintf("<%d bytes>", len(dataURL)))
		if err != nil {
			return fmt.Errorf("failed to elide media: %w", err)
		}
	}
	return c.print(raw)
}

func (c *client) print(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = c.out.Write(raw)
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// remoteError reads a Connect error ({code, message}) or a REST error
// ({error, details}) from a non-200 response.
func remoteError(resp *resty.Response) error {
	body := gjson.ParseBytes(resp.Body())
	switch {
	case body.Get("code").Type == gjson.String:
		return fmt.Errorf("%s: %s", body.Get("code").String(), body.Get("message").String())
	case body.Get("error").Exists():
		if d := body.Get("details").String(); d != "" {
			return fmt.Errorf("http %d: %s: %s", resp.StatusCode(), body.Get("error").String(), d)
		}
		return fmt.Errorf("http %d: %s", resp.StatusCode(), body.Get("error").String())
	default:
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
}

// writeDataURL decodes a base64 data URL into a file.
func writeDataURL(path, dataURL string) error {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return fmt.Errorf("response media is not a base64 data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("failed to decode media: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// imageDataURL reads a photo from disk as a data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}
	return inline.Encode(&models.InlineData{MIMEType: mimeType, Data: data}), nil
}
