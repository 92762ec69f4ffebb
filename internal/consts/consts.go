package consts

import "time"

const (
	BTC_DECIMALS = 8
	ETH_DECIMALS = 18

	// block scanning defaults, overridable per chain
	DEFAULT_WINDOW_CAP     = 100
	DEFAULT_LOOKBACK       = 5
	DEFAULT_SCAN_WORKERS   = 10
	DEFAULT_CHECKPOINT_TTL = 24 * time.Hour

	// provider request defaults
	DEFAULT_REQUEST_TIMEOUT = 30 * time.Second
	DEFAULT_BLOCK_TIMEOUT   = 60 * time.Second
	DEFAULT_MAX_RETRIES     = 5
	DEFAULT_RETRY_BACKOFF   = 1 * time.Second
	DEFAULT_PAGE_SIZE       = 50

	CHECKPOINT_KEY_PREFIX = "latest_block_height_processed_"
)
