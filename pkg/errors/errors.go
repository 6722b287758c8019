package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeEngineError     = "ENGINE_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUpstream        = "UPSTREAM_ERROR"
	CodeParse           = "PARSE_ERROR"
	CodeJudgeParse      = "JUDGE_PARSE_ERROR"
	CodeUnresolvedSkill = "UNRESOLVED_SKILL"
	CodeCache           = "CACHE_ERROR"
	CodeService         = "SERVICE_ERROR"
)

type EngineError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	*EngineError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// UpstreamError is a non-2xx answer from the LLM endpoint.
// Error() keeps the "<hint> <status>: <body>" shape so the retry
// classifier can match on the status digits.
type UpstreamError struct {
	*EngineError
	Hint   string
	Status int
	Body   string
}

func NewUpstreamError(hint string, status int, body string) *UpstreamError {
	return &UpstreamError{
		EngineError: &EngineError{
			Message:    fmt.Sprintf("%s %d: %s", hint, status, body),
			Code:       CodeUpstream,
			StatusCode: 500,
			Context: map[string]any{
				"hint":   hint,
				"status": status,
			},
		},
		Hint:   hint,
		Status: status,
		Body:   body,
	}
}

type ParseError struct {
	*EngineError
	Stage string
	Raw   string
}

func NewParseError(message, stage, raw string) *ParseError {
	return &ParseError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeParse,
			StatusCode: 500,
			Context: map[string]any{
				"stage": stage,
			},
		},
		Stage: stage,
		Raw:   raw,
	}
}

// NewJudgeParseError marks grading output that could not be turned into level checks.
func NewJudgeParseError(skill, raw string, cause error) *ParseError {
	e := NewParseError(fmt.Sprintf("Judge returned invalid or unparsable JSON for %s.", skill), "judge", raw)
	e.Code = CodeJudgeParse
	e.Context["skill"] = skill
	e.Cause = cause
	return e
}

type UnresolvedSkillError struct {
	*EngineError
	Skill string
}

func NewUnresolvedSkillError(skill string) *UnresolvedSkillError {
	return &UnresolvedSkillError{
		EngineError: &EngineError{
			Message:    fmt.Sprintf("Could not resolve skill: %s", skill),
			Code:       CodeUnresolvedSkill,
			StatusCode: 500,
			Context: map[string]any{
				"skill": skill,
			},
		},
		Skill: skill,
	}
}

type CacheError struct {
	*EngineError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*EngineError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// HTTPStatus maps an error to the status code the HTTP layer should answer with.
// Only validation failures are client errors; everything else is a 500.
func HTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve.StatusCode
	}
	return 500
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

func IsUpstream(err error) bool {
	var ue *UpstreamError
	return stderrors.As(err, &ue)
}

func IsUnresolvedSkill(err error) bool {
	var ue *UnresolvedSkillError
	return stderrors.As(err, &ue)
}

func IsJudgeParse(err error) bool {
	var pe *ParseError
	return stderrors.As(err, &pe) && pe.Code == CodeJudgeParse
}
