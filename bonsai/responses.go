package bonsai

// Wire objects of the proving service REST API.

// Session status values. RUNNING is the only non-terminal status and
// SUCCEEDED the only successful one; any other value is a terminal failure
// reported verbatim.
const (
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimedOut  = "TIMED_OUT"
	StatusAborted   = "ABORTED"
)

// UploadRes is the reply to an upload-location request.
type UploadRes struct {
	// URL is the presigned destination for a PUT of the raw bytes.
	URL string `json:"url"`
	// UUID names the uploaded artifact in later requests.
	UUID string `json:"uuid"`
}

// ProofReq asks for a session over previously uploaded artifacts.
type ProofReq struct {
	// Img is the image UUID returned by the image upload.
	Img string `json:"img"`
	// Input is the input UUID returned by the input upload.
	Input string `json:"input"`
}

// CreateSessRes is the reply to session creation.
type CreateSessRes struct {
	UUID string `json:"uuid"`
}

// SessionStatusRes is the reply to a status poll.
type SessionStatusRes struct {
	Status string `json:"status"`
	// ReceiptURL is present once Status is SUCCEEDED.
	ReceiptURL string `json:"receipt_url,omitempty"`
}
