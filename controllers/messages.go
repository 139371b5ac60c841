package controllers

import (
	"errors"
	"net/http"

	"github.com/LexAiTools/proofofconcept-sub001/services"
)

const (
	msgRateLimited     = "rate_limited"
	msgQuotaExhausted  = "quota_exhausted"
	msgUpstreamFailure = "upstream_failure"
)

// Visitor-facing error messages per language. Languages without a
// translation fall back to English.
var errorMessages = map[string]map[string]string{
	msgRateLimited: {
		"en": "Too many requests. Please try again in a moment.",
		"pl": "Zbyt wiele zapytań. Spróbuj ponownie za chwilę.",
	},
	msgQuotaExhausted: {
		"en": "The assistant is temporarily unavailable.",
		"pl": "Asystent jest chwilowo niedostępny.",
	},
	msgUpstreamFailure: {
		"en": "Something went wrong. Please try again later.",
		"pl": "Coś poszło nie tak. Spróbuj ponownie później.",
	},
}

func localizeError(key, language string) string {
	if msg, ok := errorMessages[key][language]; ok {
		return msg
	}
	return errorMessages[key]["en"]
}

// errorResponse maps a gateway failure to the HTTP status and localized
// message sent to the client.
func errorResponse(err error, language string) (int, string) {
	var ce *services.CompletionError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case services.KindRateLimited:
			return http.StatusTooManyRequests, localizeError(msgRateLimited, language)
		case services.KindQuotaExhausted:
			return http.StatusPaymentRequired, localizeError(msgQuotaExhausted, language)
		}
	}
	return http.StatusInternalServerError, localizeError(msgUpstreamFailure, language)
}
