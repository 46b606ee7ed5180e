package metrics

import "github.com/debatetab/debatetab/internal/logger"

var log = logger.Global().Module("metrics")
