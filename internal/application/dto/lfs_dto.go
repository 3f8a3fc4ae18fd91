package dto

import (
	"time"

	"github.com/bravo68web/gitolfs/internal/domain/models"
)

// MediaType is the git-lfs JSON media type required on batch requests
// and carried on every batch response
const MediaType = "application/vnd.git-lfs+json"

// TransferBasic is the only transfer adapter this server negotiates
const TransferBasic = "basic"

// BatchRequest represents an LFS batch API request
type BatchRequest struct {
	Operation string           `json:"operation"`
	Transfers []string         `json:"transfers,omitempty"`
	Objects   []models.Pointer `json:"objects"`
}

// BatchResponse represents an LFS batch API response
type BatchResponse struct {
	Transfer string        `json:"transfer"`
	Objects  []BatchObject `json:"objects"`
}

// BatchObject represents a single object in the batch response. An
// object carries either an action plan, an error, or neither (neither
// means the object is already present and the client can skip it).
type BatchObject struct {
	OID     string         `json:"oid"`
	Size    int64          `json:"size"`
	Actions *ObjectActions `json:"actions,omitempty"`
	Error   *ObjectError   `json:"error,omitempty"`
}

// ObjectActions represents the available transfer actions for an object
type ObjectActions struct {
	Download *Link `json:"download,omitempty"`
	Upload   *Link `json:"upload,omitempty"`
	Verify   *Link `json:"verify,omitempty"`
}

// Link is a hypermedia reference with the auth header and expiry the
// client must present when following it
type Link struct {
	Href      string            `json:"href"`
	Header    map[string]string `json:"header,omitempty"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// ObjectError is the per-object error carried inside an otherwise
// successful batch response
type ObjectError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// VerifyRequest is the body of the transfer-layer verify call
type VerifyRequest struct {
	OID  string `json:"oid"`
	Size int64  `json:"size"`
}

// ErrorResponse is the JSON error body returned by every endpoint.
// DocumentationURL and RequestID may be empty but are always present.
type ErrorResponse struct {
	Message          string `json:"message"`
	DocumentationURL string `json:"documentation_url"`
	RequestID        string `json:"request_id"`
}
