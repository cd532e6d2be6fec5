package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/complaintflow/config"
	"github.com/valkey-io/valkey-go"
)

// NewValkeyClient connects and pings. The caller owns Close.
func NewValkeyClient(ctx context.Context, cfg config.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{
			cfg.InitAddress,
		},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.InitAddress))
	return client, nil
}

// ValkeyCache stores oracle responses as plain string keys with an expiry.
type ValkeyCache struct {
	Client valkey.Client
}

func NewValkeyCache(client valkey.Client) *ValkeyCache {
	return &ValkeyCache{Client: client}
}

func (vc *ValkeyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Get().Key(key).Build(), 2)
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	b, err := res.AsBytes()
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set writes the value and its expiry in one SET ... PX command.
func (vc *ValkeyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < time.Millisecond {
		return fmt.Errorf("[ValkeyClient] invalid ttl %s for key %s", ttl, key)
	}
	cmd := vc.Client.B().Set().Key(key).Value(string(value)).PxMilliseconds(ttl.Milliseconds()).Build()
	return vc.Client.Do(ctx, cmd).Error()
}

func (vc *ValkeyCache) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, completed)
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) || ctx.Err() != nil {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(100 * time.Millisecond)
	}

	return result
}
