package s3infra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContentType(t *testing.T) {
	assert.True(t, strings.HasPrefix(DetectContentType("index.html"), "text/html"))
	assert.True(t, strings.HasPrefix(DetectContentType("js/app.js"), "text/javascript") ||
		strings.HasPrefix(DetectContentType("js/app.js"), "application/javascript"))
	assert.Equal(t, "image/png", DetectContentType("img/logo.png"))
	assert.Equal(t, "application/octet-stream", DetectContentType("LICENSE"))
}
