package jboss

import (
	"context"
	"errors"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/openfroyo/jbossfacts/pkg/facts"
	"github.com/openfroyo/jbossfacts/pkg/telemetry"
)

// Collector publishes instance facts for one directory.
type Collector struct {
	fsys billy.Filesystem
	root string

	mu   sync.Mutex
	last *Registry
}

var _ facts.Collector = (*Collector)(nil)

// NewCollector creates a collector that scans root on fsys.
func NewCollector(fsys billy.Filesystem, root string) *Collector {
	return &Collector{
		fsys: fsys,
		root: root,
		last: emptyRegistry(),
	}
}

// NewHostCollector creates a collector for the local DefaultInstancePath.
func NewHostCollector() *Collector {
	return NewCollector(osfs.New("/"), DefaultInstancePath)
}

// Name implements facts.Collector.
func (c *Collector) Name() string {
	return "jboss"
}

// Root returns the directory this collector scans.
func (c *Collector) Root() string {
	return c.root
}

// Collect scans the directory once and returns facts backed by that scan.
// An unreadable directory is logged and reported as having no instances;
// Collect itself never fails.
func (c *Collector) Collect(ctx context.Context) ([]facts.Definition, error) {
	op := telemetry.StartOperation(ctx, "jboss.scan", telemetry.AttrScanRoot.String(c.root))
	logger := op.Logger.WithRoot(c.root)

	registry, err := Scan(c.fsys, c.root)

	result := telemetry.ScanResultFound
	var scanErr *ScanError
	switch {
	case errors.As(err, &scanErr):
		result = telemetry.ScanResultUnreadable
		logger.WithError(err).Warn("Instance directory is not readable, publishing no instance facts")
	case err != nil:
		// Scan only returns *ScanError; anything else is still non-fatal.
		result = telemetry.ScanResultUnreadable
		logger.WithError(err).Warn("Instance scan failed, publishing no instance facts")
	case registry.IsEmpty():
		result = telemetry.ScanResultEmpty
		logger.Debug("No instances found")
	}

	defs := registry.FactDefinitions()
	apps := len(registry.applications)

	if tel := telemetry.FromTelemetryContext(ctx); tel != nil {
		tel.Metrics.RecordScan(result, op.Timer.Duration(), registry.Len(), apps)
	}

	op.SetAttributes(
		telemetry.AttrScanResult.String(result),
		telemetry.AttrInstanceCount.Int(registry.Len()),
		telemetry.AttrApplicationCount.Int(apps),
		telemetry.AttrFactCount.Int(len(defs)),
	)
	op.End(err)

	logger.WithFields(map[string]interface{}{
		"instances":    registry.Len(),
		"applications": apps,
		"facts":        len(defs),
	}).Debug("Instance scan completed")

	c.mu.Lock()
	c.last = registry
	c.mu.Unlock()

	return defs, nil
}

// Registry returns the registry produced by the most recent Collect.
func (c *Collector) Registry() *Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
