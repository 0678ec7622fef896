package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const signatureHeader = "X-Hub-Signature-256"

// ValidateSignature checks a webhook body against the X-Hub-Signature-256
// header value, keyed with the Meta app secret.
func ValidateSignature(appSecret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignatureRequired aborts requests whose payload signature does not match.
// The raw body is re-attached to the request so later binding still works.
func SignatureRequired(appSecret string, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !ValidateSignature(appSecret, body, c.GetHeader(signatureHeader)) {
			logger.Infow("signature verification failed", "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "invalid signature"})
			return
		}

		c.Next()
	}
}
