//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// HandlerServerErrors flags 5xx responses written directly from API
// handlers. HandleError logs them with a correlation ID.
func HandlerServerErrors(m dsl.Matcher) {
	m.Import("github.com/labstack/echo/v4")

	m.Match(`$c.JSON(http.StatusInternalServerError, $_)`,
		`$c.JSON(500, $_)`).
		Where(m["c"].Type.Is("echo.Context") && m.File().PkgPath.Matches(`/internal/api/v1$`)).
		Report("use HandleError for 5xx responses so they are logged with a correlation ID")
}

// RepositoryContext flags repository queries that do not carry the
// request context.
func RepositoryContext(m dsl.Matcher) {
	m.Match(`$db.Where($*_)`, `$db.First($*_)`, `$db.Find($*_)`, `$db.Create($*_)`, `$db.Save($*_)`).
		Where(m["db"].Text.Matches(`^r\.db$`) && m.File().PkgPath.Matches(`/internal/datastore/repository$`)).
		Report("start repository queries with r.db.WithContext(ctx)")
}

// RecordNotFound requires errors.Is for gorm sentinel errors.
func RecordNotFound(m dsl.Matcher) {
	m.Import("gorm.io/gorm")

	m.Match(`$err == gorm.ErrRecordNotFound`).
		Report("use errors.Is($err, gorm.ErrRecordNotFound)").
		Suggest("errors.Is($err, gorm.ErrRecordNotFound)")

	m.Match(`$err != gorm.ErrRecordNotFound`).
		Report("use !errors.Is($err, gorm.ErrRecordNotFound)").
		Suggest("!errors.Is($err, gorm.ErrRecordNotFound)")
}

// StdLogging flags the standard library loggers outside main packages.
// Internal packages log through logger.Global().Module(...).
func StdLogging(m dsl.Matcher) {
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Fatalf($*_)`, `log.Fatal($*_)`,
		`slog.Info($*_)`, `slog.Warn($*_)`, `slog.Error($*_)`, `slog.Debug($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/`) && !m.File().PkgPath.Matches(`/internal/logger$`)).
		Report("use the module logger from internal/logger")
}

// WaitGroupGo detects the Add/Done goroutine pattern replaced by wg.Go.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }()").
		Suggest("$wg.Go(func() { $*_ })")
}

// TimeSince prefers time.Since over time.Now().Sub.
func TimeSince(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report("use time.Since($t)").
		Suggest("time.Since($t)")
}
