package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> workflow).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyRunId = ContextKey("RunId")
	ContextKeyStage = ContextKey("Stage")
)

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

func SetRunId(ctx context.Context, runId string) context.Context {
	return Set(ctx, ContextKeyRunId, runId)
}

func GetRunId(ctx context.Context) string {
	v, _ := GetString(ctx, ContextKeyRunId)
	return v
}

func SetStage(ctx context.Context, stage string) context.Context {
	return Set(ctx, ContextKeyStage, stage)
}

func GetStage(ctx context.Context) string {
	v, _ := GetString(ctx, ContextKeyStage)
	return v
}
