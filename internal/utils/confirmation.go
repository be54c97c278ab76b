package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mvlbulankin/yamdb-final/internal/models"
	"golang.org/x/crypto/hkdf"
)

const (
	confirmationKeyInfo = "yamdb confirmation code"
	codeMACLength       = 20
	maxClockSkew        = time.Minute
)

// CodeGenerator derives confirmation codes from a user's current state.
// Nothing is stored: a code stays valid until it expires or any bound
// field (username, email, role, last login) changes.
type CodeGenerator struct {
	key []byte
	ttl time.Duration
}

func NewCodeGenerator(secret string, ttl time.Duration) (*CodeGenerator, error) {
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(confirmationKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive confirmation key: %w", err)
	}
	return &CodeGenerator{key: key, ttl: ttl}, nil
}

// Make returns "<issued-at base36>-<mac>".
func (g *CodeGenerator) Make(user *models.User, now time.Time) string {
	ts := now.Unix()
	return strconv.FormatInt(ts, 36) + "-" + g.mac(user, ts)
}

// Check verifies code against the user's state as of now.
func (g *CodeGenerator) Check(user *models.User, code string, now time.Time) bool {
	tsPart, macPart, ok := strings.Cut(code, "-")
	if !ok || tsPart == "" || len(macPart) != codeMACLength {
		return false
	}

	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return false
	}

	if !hmac.Equal([]byte(g.mac(user, ts)), []byte(macPart)) {
		return false
	}

	issued := time.Unix(ts, 0)
	if issued.After(now.Add(maxClockSkew)) {
		return false
	}
	return now.Sub(issued) <= g.ttl
}

func (g *CodeGenerator) mac(user *models.User, ts int64) string {
	var lastLogin int64
	if user.LastLogin != nil {
		lastLogin = user.LastLogin.UnixMicro()
	}

	h := hmac.New(sha256.New, g.key)
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|%d", user.ID, user.Username, user.Email, user.Role, lastLogin, ts)
	return hex.EncodeToString(h.Sum(nil))[:codeMACLength]
}
