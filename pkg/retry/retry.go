package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// リトライ関連の定数
	DefaultMaxRetries = 2 // 最大リトライ回数

	// 検索APIに対する固定間隔のバックオフ
	DefaultInterval = 1 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// Config はリトライ動作を設定するための構造体です。
// Multiplier が 1 以下の場合は固定間隔、それより大きい場合は指数バックオフになります。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultConfig は固定間隔のデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInterval,
		MaxInterval:     DefaultInterval,
		Multiplier:      1,
	}
}

// newBackOffPolicy は Config から backoff.BackOff を構築します。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOff {
	var b backoff.BackOff
	if cfg.Multiplier <= 1 {
		b = backoff.NewConstantBackOff(cfg.InitialInterval)
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = cfg.InitialInterval
		eb.MaxInterval = cfg.MaxInterval
		eb.Multiplier = cfg.Multiplier
		b = eb
	}

	// 最大リトライ回数とコンテキストを backoff に適用
	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do はバックオフとカスタムエラー判定を使用して操作をリトライします。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	var (
		lastErr   error
		permanent bool
	)

	retryableOp := func() error {
		err := op()
		if err == nil {
			return nil
		}

		lastErr = err
		if shouldRetryFn != nil && shouldRetryFn(err) {
			return err
		}
		permanent = true
		return backoff.Permanent(err)
	}

	err := backoff.Retry(retryableOp, newBackOffPolicy(ctx, cfg))
	if err == nil {
		return nil
	}

	// コンテキストキャンセル/タイムアウト
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s failed: context done: %w", operationName, err)
	}

	// backoff.Retry は PermanentError を展開して返す
	if permanent {
		return fmt.Errorf("%s failed: %w", operationName, lastErr)
	}

	return fmt.Errorf("%s failed after %d retries: %w", operationName, cfg.MaxRetries, lastErr)
}
