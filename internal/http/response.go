package http

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates an operation completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates an operation failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status Status `json:"status,omitempty"`
	Index  uint64 `json:"index,omitempty"`
	Size   int    `json:"size,omitempty"`
	Role   string `json:"role,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewAppendResponse(index uint64, size int) Response {
	return Response{Status: StatusSuccess, Index: index, Size: size}
}

func NewRoleResponse(state string) Response {
	return Response{Status: StatusSuccess, Role: state}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
