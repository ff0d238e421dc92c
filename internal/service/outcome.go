package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
	"github.com/kursadbilgin/rndc-gateway/internal/provider"
)

// Classification codes assigned by the orchestrator itself.
const (
	CodeDispatchError = "DISPATCH_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
	CodePanic         = "PANIC"
)

// sendSafely calls the provider and turns a panic into a classified result.
func sendSafely(ctx context.Context, p provider.Provider, document, targetURL string) (result *provider.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = &provider.Result{
				Success: false,
				Code:    CodePanic,
				Message: fmt.Sprintf("send panicked: %v", rec),
			}
		}
	}()

	res, err := p.Send(ctx, document, targetURL)
	if err != nil {
		return &provider.Result{
			Success: false,
			Code:    provider.CodeTransportError,
			Message: err.Error(),
		}
	}
	if res == nil {
		return &provider.Result{
			Success: false,
			Code:    provider.CodeTransportError,
			Message: "provider returned no result",
		}
	}
	return res
}

func outcomeFromResult(res *provider.Result, processedAt time.Time) domain.Outcome {
	status := domain.SubmissionStatusError
	if res.Success {
		status = domain.SubmissionStatusSuccess
	}
	return domain.Outcome{
		Status:          status,
		ResponseCode:    res.Code,
		ResponseMessage: res.Message,
		XMLResponse:     res.RawXML,
		IngresoID:       res.IngresoID,
		ProcessedAt:     processedAt,
	}
}

func errorOutcome(code, message string, processedAt time.Time) domain.Outcome {
	return domain.Outcome{
		Status:          domain.SubmissionStatusError,
		ResponseCode:    code,
		ResponseMessage: message,
		ProcessedAt:     processedAt,
	}
}
