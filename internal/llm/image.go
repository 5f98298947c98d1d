package llm

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ReadPageImage loads a rendered page and sniffs its MIME type.
func ReadPageImage(path string) ([]byte, string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	if len(b) == 0 {
		return nil, "", fmt.Errorf("empty image %s", path)
	}
	mt := mimetype.Detect(b).String()
	if !strings.HasPrefix(mt, "image/") {
		// pdftoppm only emits PNG
		mt = "image/png"
	}
	return b, mt, nil
}

// DataURL encodes img as a base64 data URL.
func DataURL(img PageImage) string {
	mt := img.MIMEType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\n(.*?)\\n?```$")

// CleanTranscription strips the markdown fence models like to wrap answers in.
func CleanTranscription(s string) string {
	s = strings.TrimSpace(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	return s
}
