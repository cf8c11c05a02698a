package testutil

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
)

// Scrape serves one GET against a metrics handler and copies the body to w.
func Scrape(h http.Handler, w io.Writer) error {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		return fmt.Errorf("metrics handler returned %d", rec.Code)
	}
	_, err := io.Copy(w, rec.Body)
	return err
}

// MultipartPlate builds a multipart body holding the file at path under the
// "file" field plus the given form fields. It returns the body and its
// Content-Type.
func MultipartPlate(path string, fields map[string]string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}
