package main

import (
	"time"

	apperrors "startup-match-workers/internal/common/errors"
	"startup-match-workers/pkg/registry"

	cc "startup-match-workers/internal/workers/checkout/calculate-checkout"
	fm "startup-match-workers/internal/workers/matching/filter-matches"
	ms "startup-match-workers/internal/workers/matching/match-startups"
)

func codes(cs ...apperrors.ErrorCode) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func buildRegistry(now time.Time) *registry.ActivityRegistry {
	return &registry.ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: now.UTC().Format(time.RFC3339),
		Activities: []registry.Activity{
			{
				ID:          ms.TaskType,
				DisplayName: "Match Startups",
				Description: "Ranks active catalog startups against the reported problem and stores the suggestions",
				Category:    "matching",
				TaskType:    ms.TaskType,
				InputSchema: ms.GetInputSchema(),
				ErrorCodes: codes(
					apperrors.ErrCodeNoProvidersAvailable,
					apperrors.ErrCodeCatalogLoadFailed,
					apperrors.ErrCodeLLMInvocationFailed,
					apperrors.ErrCodeLLMTimeout,
					apperrors.ErrCodeLLMResponseInvalid,
					apperrors.ErrCodeMatchingInProgress,
					apperrors.ErrCodeTransactionNotFound,
					apperrors.ErrCodeTransactionLoadFailed,
					apperrors.ErrCodeTransactionUpdateFailed,
					apperrors.ErrCodeCacheUnavailable,
					apperrors.ErrCodeInvalidInput,
				),
				Timeout: "240s",
				Retries: 3,
				Tags:    []string{"llm", "catalog"},
			},
			{
				ID:          fm.TaskType,
				DisplayName: "Filter Matches",
				Description: "Applies category, vertical, business model and minimum score filters to suggestions",
				Category:    "matching",
				TaskType:    fm.TaskType,
				InputSchema: fm.GetInputSchema(),
				ErrorCodes:  codes(
					apperrors.ErrCodeInvalidInput,
					apperrors.ErrCodeTransactionNotFound,
					apperrors.ErrCodeTransactionLoadFailed,
				),
				Timeout:     "10s",
				Retries:     1,
			},
			{
				ID:          cc.TaskType,
				DisplayName: "Calculate Checkout",
				Description: "Prices the selected startups and hands the checkout to the payment step",
				Category:    "checkout",
				TaskType:    cc.TaskType,
				InputSchema: cc.GetInputSchema(),
				ErrorCodes: codes(
					apperrors.ErrCodeSelectionInvalid,
					apperrors.ErrCodeInvalidInput,
					apperrors.ErrCodeTransactionNotFound,
					apperrors.ErrCodeTransactionLoadFailed,
					apperrors.ErrCodeTransactionUpdateFailed,
					apperrors.ErrCodeEventPublishFailed,
				),
				Timeout: "15s",
				Retries: 3,
				Tags:    []string{"pricing", "sns"},
			},
		},
	}
}
