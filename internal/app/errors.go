package app

import "fmt"

// DomainError is the typed failure the planning engine hands the transport
// layer. Validation rejections carry 422, quarter and availability conflicts
// 409, missing records 404. Details holds machine-readable context such as
// the conflicting epic ids.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
