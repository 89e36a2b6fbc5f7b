package port

import (
	"context"

	"mediabot/internal/domain"
)

// TranscodeInvoker wraps one external transcode invocation. Errors are
// *domain.Failure values: process (non-zero exit, bad output), timeout
// (deadline hit), or storage (staging the produced file failed). The invoker
// never retries; retry policy, if any, belongs to the caller.
type TranscodeInvoker interface {
	Run(ctx context.Context, input domain.AssetHandle, op domain.Operation) (*domain.Result, error)
}
