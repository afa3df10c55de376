package surface

import "encoding/json"

// response is the envelope of a successful GET query response.
type response struct {
	Result any `json:"result"`
}

// errorResponse is the envelope of a failed GET query response.
type errorResponse struct {
	Error *Error `json:"error"`
}

func encodeResponse(w jsonWriter, result any) error {
	return json.NewEncoder(w).Encode(response{Result: result})
}

func encodeErrorResponse(w jsonWriter, err *Error) error {
	return json.NewEncoder(w).Encode(errorResponse{Error: err})
}

// jsonWriter is satisfied by http.ResponseWriter and allows testing.
type jsonWriter interface {
	Write([]byte) (int, error)
}
