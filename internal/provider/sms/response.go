package sms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CodeSuccess is the only provider code that means the message was accepted.
const CodeSuccess = 202

type Kind int

const (
	KindUnrecognized Kind = iota
	KindCode
	KindHTMLPage
)

// Response is the classified provider reply.
type Response struct {
	Kind Kind
	Code int
	Raw  string
}

func (r Response) OK() bool { return r.Kind == KindCode && r.Code == CodeSuccess }

type classifier func(body []byte) (Response, bool)

// Classifiers run in order; the first match wins.
var classifiers = []classifier{
	looksLikeHTMLErrorPage,
	tryParseJSONEnvelope,
	tryParseNumericCode,
}

// ParseResponse classifies a raw provider body.
func ParseResponse(body []byte) Response {
	for _, c := range classifiers {
		if r, ok := c(body); ok {
			return r
		}
	}
	return Response{Kind: KindUnrecognized, Raw: strings.TrimSpace(string(body))}
}

func looksLikeHTMLErrorPage(body []byte) (Response, bool) {
	trimmed := bytes.TrimSpace(body)
	lower := bytes.ToLower(trimmed[:min(len(trimmed), 16)])
	if bytes.HasPrefix(lower, []byte("<!doctype")) || bytes.HasPrefix(lower, []byte("<html")) {
		return Response{Kind: KindHTMLPage, Raw: string(trimmed)}, true
	}
	return Response{}, false
}

func tryParseJSONEnvelope(body []byte) (Response, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Response{}, false
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Response{}, false
	}
	for _, key := range []string{"response_code", "responseCode", "code", "status_code"} {
		raw, ok := env[key]
		if !ok {
			continue
		}
		if code, ok := codeFromJSON(raw); ok {
			return Response{Kind: KindCode, Code: code, Raw: string(trimmed)}, true
		}
	}
	return Response{}, false
}

// codeFromJSON accepts both 202 and "202".
func codeFromJSON(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func tryParseNumericCode(body []byte) (Response, bool) {
	s := strings.TrimSpace(string(body))
	n, err := strconv.Atoi(s)
	if err != nil {
		return Response{}, false
	}
	return Response{Kind: KindCode, Code: n, Raw: s}, true
}

var codeMeanings = map[int]string{
	202:  "SMS Submitted Successfully",
	1001: "Invalid Number",
	1002: "Sender ID not correct or sender ID is disabled",
	1003: "Please provide all required fields or contact your system administrator",
	1005: "Internal Error",
	1006: "Balance validity not available",
	1007: "Balance insufficient",
	1011: "User ID not found",
	1012: "Masking SMS must be sent in Bengali",
	1013: "Sender ID has not found a gateway for this API key",
	1014: "Sender type name not found for this sender by API key",
	1015: "Sender ID has not found any valid gateway for this API key",
	1016: "Sender type name active price info not found for this sender ID",
	1017: "Sender type name price info not found for this sender ID",
	1018: "The owner of this account is disabled",
	1019: "The sender type name price of this account is disabled",
	1020: "The parent of this account is not found",
	1021: "The parent active sender type name price of this account is not found",
	1031: "Your account is not verified, please contact the administrator",
	1032: "IP not whitelisted",
}

// Describe maps a provider code to its human-readable meaning.
func Describe(code int) string {
	if m, ok := codeMeanings[code]; ok {
		return m
	}
	return fmt.Sprintf("API Error: %d", code)
}
