package checkin

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"
)

// QR tokens have the form "chk1:<booking_id>:<class_id>:<unix_ts>:<sig>"
// where sig is the hex HMAC-SHA256 of the first four fields under the
// service secret.  Tokens are short-lived and additionally single-use;
// replay is enforced by the handler via Redis, the codec only covers
// shape, signature and age.
const qrTokenPrefix = "chk1"

// Sentinel errors returned by Decode.  They are distinguished so the
// handler can map expiry and tampering to different error codes.
var (
    ErrTokenMalformed = errors.New("qr token malformed")
    ErrTokenSignature = errors.New("qr token signature mismatch")
    ErrTokenExpired   = errors.New("qr token expired")
)

// QRTokenCodec signs and verifies check-in QR tokens.
type QRTokenCodec struct {
    secret   []byte
    validity time.Duration
}

// NewQRTokenCodec builds a codec with the given signing secret and
// validity window (how long an issued token stays usable).
func NewQRTokenCodec(secret string, validity time.Duration) *QRTokenCodec {
    return &QRTokenCodec{secret: []byte(secret), validity: validity}
}

// Issue produces a signed token binding a booking and its class to
// the issue time.
func (c *QRTokenCodec) Issue(bookingID, classID uint64, now time.Time) string {
    payload := fmt.Sprintf("%s:%d:%d:%d", qrTokenPrefix, bookingID, classID, now.Unix())
    return payload + ":" + c.sign(payload)
}

// Decode verifies a token's shape, signature and age, returning the
// embedded booking and class IDs.  Signature comparison is constant
// time.  Decode is called before any booking lookup so that expired
// or forged tokens never touch the database.
func (c *QRTokenCodec) Decode(token string, now time.Time) (bookingID, classID uint64, err error) {
    parts := strings.Split(token, ":")
    if len(parts) != 5 || parts[0] != qrTokenPrefix {
        return 0, 0, ErrTokenMalformed
    }
    payload := strings.Join(parts[:4], ":")
    if !hmac.Equal([]byte(c.sign(payload)), []byte(parts[4])) {
        return 0, 0, ErrTokenSignature
    }
    bookingID, err = strconv.ParseUint(parts[1], 10, 64)
    if err != nil {
        return 0, 0, ErrTokenMalformed
    }
    classID, err = strconv.ParseUint(parts[2], 10, 64)
    if err != nil {
        return 0, 0, ErrTokenMalformed
    }
    ts, err := strconv.ParseInt(parts[3], 10, 64)
    if err != nil {
        return 0, 0, ErrTokenMalformed
    }
    issued := time.Unix(ts, 0)
    if now.Sub(issued) > c.validity || issued.Sub(now) > time.Minute {
        return 0, 0, ErrTokenExpired
    }
    return bookingID, classID, nil
}

func (c *QRTokenCodec) sign(payload string) string {
    mac := hmac.New(sha256.New, c.secret)
    mac.Write([]byte(payload))
    return hex.EncodeToString(mac.Sum(nil))
}
