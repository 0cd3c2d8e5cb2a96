package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"contribs/internal/core/errors"
	"contribs/internal/engine/resolver"
	"contribs/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnalyzeFile reads path and resolves it. When root is non-empty the
// file's module path is derived from it so relative imports can be
// anchored.
func (a *App) AnalyzeFile(ctx context.Context, root, path string) (*resolver.Analysis, error) {
	analysis, _, err := a.analyzeFile(ctx, root, path)
	return analysis, err
}

func (a *App) analyzeFile(ctx context.Context, root, path string) (*resolver.Analysis, []byte, error) {
	_, span := observability.Tracer.Start(ctx, "app.AnalyzeFile", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	src, err := os.ReadFile(path)
	if err != nil {
		observability.FilesTotal.WithLabelValues("read_error").Inc()
		return nil, nil, errors.AddContext(err, errors.CtxPath, path)
	}

	unit := resolver.Unit{Path: path, Source: src}
	if root != "" {
		unit.ModulePath, unit.IsPackage = resolver.ModulePath(root, path)
	}

	start := time.Now()
	analysis, err := a.resolver.Analyze(unit)
	observability.ResolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.FilesTotal.WithLabelValues("parse_error").Inc()
		span.RecordError(err)
		return nil, src, err
	}
	recordAnalysis(path, analysis.Stats)
	return analysis, src, nil
}

func recordAnalysis(path string, stats resolver.Stats) {
	result := "ok"
	if stats.Loci == 0 {
		result = "empty"
	}
	observability.FilesTotal.WithLabelValues(result).Inc()
	observability.LociTotal.Add(float64(stats.Loci))
	if stats.NonStdlib > 0 {
		observability.ImportsDroppedTotal.WithLabelValues("non_stdlib").Add(float64(stats.NonStdlib))
	}
	if stats.UnresolvedRelative > 0 {
		observability.ImportsDroppedTotal.WithLabelValues("unresolved_relative").Add(float64(stats.UnresolvedRelative))
		slog.Debug("relative imports dropped", "code", errors.CodeUnresolvedImport, "path", path, "count", stats.UnresolvedRelative)
	}
	if stats.MalformedAttributes > 0 {
		observability.MalformedAttributesTotal.Add(float64(stats.MalformedAttributes))
		slog.Debug("malformed attribute access", "code", errors.CodeMalformedAttribute, "path", path, "count", stats.MalformedAttributes)
	}
}
