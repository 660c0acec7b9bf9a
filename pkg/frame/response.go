package frame

import "strings"

// Response is the business meaning of a decoded printer reply.
type Response struct {
	Success        bool
	DocumentNumber string
	// Code is the raw vendor error code when Success is false.
	Code   string
	Fields []string
}

var successTokens = map[string]bool{"0": true, "00": true, "OK": true}

// Classify interprets reply fields. It never fails: shapes it does not recognise are treated
// as a plain acknowledgement, because some firmware omits the status field on trivial acks.
//
//   - "0" / "00" / "OK" first: success, an all-digit second field is the document number
//   - "ERR" first: failure, the second field is the code
//   - a single numeric token: success, the token is the document number
//   - a numeric first field followed by more fields: failure with that code
func Classify(fields []string) Response {
	r := Response{Fields: fields}
	if len(fields) == 0 {
		r.Success = true
		return r
	}

	first := strings.TrimSpace(fields[0])
	switch {
	case successTokens[strings.ToUpper(first)]:
		r.Success = true
		if len(fields) > 1 && isDigits(strings.TrimSpace(fields[1])) {
			r.DocumentNumber = strings.TrimSpace(fields[1])
		}
	case strings.EqualFold(first, "ERR"):
		if len(fields) > 1 {
			r.Code = strings.TrimSpace(fields[1])
		}
	case len(fields) == 1 && isDigits(first):
		r.Success = true
		r.DocumentNumber = first
	case isDigits(first):
		r.Code = first
	default:
		r.Success = true
	}
	return r
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
