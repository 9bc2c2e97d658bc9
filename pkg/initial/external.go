package initial

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/hypergraph-partitioner/pkg/config"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hgrio"
	"github.com/gilchrisn/hypergraph-partitioner/pkg/hypergraph"
)

// External runs hMetis or PaToH on the coarse hypergraph. The hypergraph is
// written to a uniquely named file; the tool is expected to leave its result
// in "<file>.part.<k>".
type External struct {
	tool          config.InitialPartitionerAlgorithm
	path          string
	tempDir       string
	k             int
	epsilon       float64
	ubFactor      float64
	maxPartWeight hypergraph.HypernodeWeight
	seed          int64
	logger        zerolog.Logger
}

func NewExternal(cfg config.Config, seed int64, logger zerolog.Logger) *External {
	return &External{
		tool:          cfg.Partition.InitialPartitioner,
		path:          cfg.Partition.InitialPartitionerPath,
		tempDir:       cfg.InitialPartitioning.TempDir,
		k:             cfg.Partition.K,
		epsilon:       cfg.Partition.Epsilon,
		ubFactor:      cfg.Partition.HmetisUBFactor,
		maxPartWeight: cfg.Partition.MaxPartWeight,
		seed:          seed,
		logger:        logger,
	}
}

func (x *External) Name() string { return string(x.tool) }

func (x *External) args(file string) []string {
	k := strconv.Itoa(x.k)
	if x.tool == config.InitialPartitionerPaToH {
		return []string{file, k,
			"SD=" + strconv.FormatInt(x.seed, 10),
			"FI=" + strconv.FormatFloat(x.epsilon, 'f', -1, 64),
			"PQ=Q", "UM=U", "WI=1", "BO=C"}
	}
	return []string{file, k,
		"-seed=" + strconv.FormatInt(x.seed, 10),
		"-ufactor=" + strconv.FormatFloat(x.ubFactor, 'f', 6, 64),
		"-ptype=rb", "-otype=cut", "-nruns=1"}
}

func (x *External) Partition(ctx context.Context, hg *hypergraph.Hypergraph) error {
	dir := x.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	file := filepath.Join(dir, fmt.Sprintf("coarse-%s.hgr", uuid.NewString()))
	output := fmt.Sprintf("%s.part.%d", file, x.k)
	defer os.Remove(file)
	defer os.Remove(output)

	mapping, err := hgrio.WriteHypergraphFile(file, hg)
	if err != nil {
		return errors.Wrap(err, x.Name())
	}

	cmd := exec.CommandContext(ctx, x.path, x.args(file)...)
	x.logger.Debug().Str("tool", x.Name()).Strs("args", cmd.Args).Msg("Running external initial partitioner")
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(ErrExternalToolFailure, "%s (%s): %v: %s", x.Name(), x.path, err, lastLine(out))
	}

	parts, err := hgrio.ReadPartitionFile(output, len(mapping), x.k)
	if err != nil {
		return errors.Wrapf(ErrExternalToolFailure, "%s: %v", x.Name(), err)
	}

	hg.ResetPartitioning()
	for i, u := range mapping {
		hg.SetNodePart(u, parts[i])
	}
	return errors.Wrap(hg.CheckBalance(x.maxPartWeight), x.Name())
}

func lastLine(out []byte) string {
	end := len(out)
	for end > 0 && (out[end-1] == '\n' || out[end-1] == '\r') {
		end--
	}
	start := end
	for start > 0 && out[start-1] != '\n' {
		start--
	}
	return string(out[start:end])
}
