// Package resolver implements the Graph Builder of spec.md §4.4: the
// end-to-end pipeline turning a repository and its commit history into a
// populated symbolgraph.Graph.
//
// The parallel-extraction worker pool is adapted from the teacher's
// internal/index/builder.go (processFilesSymbols/symbolWorker: a bounded
// pool of goroutines draining a work channel, coordinated with
// golang.org/x/sync/errgroup), narrowed here to a single extraction phase
// per spec.md §5's contract that each unit opens its own read-only repo
// handle and shares no mutable state.
package resolver

import (
	"context"
	"math"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/73ai/gossiphs/internal/apperr"
	"github.com/73ai/gossiphs/internal/cache"
	"github.com/73ai/gossiphs/internal/config"
	"github.com/73ai/gossiphs/internal/extractor"
	"github.com/73ai/gossiphs/internal/history"
	"github.com/73ai/gossiphs/internal/repo"
	"github.com/73ai/gossiphs/internal/rule"
	"github.com/73ai/gossiphs/internal/symbolgraph"
)

// Builder orchestrates Build's eight phases against one GraphConfig.
type Builder struct {
	cfg      config.GraphConfig
	filters  config.CompiledFilters
	registry *rule.Registry
	cache    *cache.Cache
	logger   zerolog.Logger
}

// NewBuilder compiles cfg's regexes and returns a ready Builder. A
// *apperr.Error tagged KindConfig is returned on an invalid regex.
func NewBuilder(cfg config.GraphConfig, registry *rule.Registry, blobCache *cache.Cache, logger zerolog.Logger) (*Builder, error) {
	filters, err := cfg.Compile()
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, "compile filters", err)
	}
	return &Builder{cfg: cfg, filters: filters, registry: registry, cache: blobCache, logger: logger}, nil
}

// fileContext is the per-file aggregate of spec.md §3: a path and its
// surviving symbols, mutated in place by later phases.
type fileContext struct {
	path    string
	symbols []extractor.Symbol
}

// globalTables holds the three maps of spec.md §3, keyed by a symbol's
// simple (last-segment) name rather than its full FQN.
//
// extractor.assembleFQN always prefixes a reference's FQN with its own
// enclosing function/method scope — the caller — while a definition's FQN
// never includes its caller's scope (per spec.md §8 scenario 2: the call to
// validate inside AuthService.login gets FQN "AuthService.login.validate",
// which resolves to the def "AuthService.validate"). An exact-FQN-equality
// lookup would never match a reference nested in any enclosing scope, so
// both tables are keyed by simpleName instead; scopeOverlap below narrows
// same-named candidates back down using the part of the FQN that does
// carry scope information.
type globalTables struct {
	defs       map[string][]extractor.Symbol
	refs       map[string][]extractor.Symbol
	uniqueDefs map[string]struct{}
}

// simpleName returns an FQN's last dot-separated segment.
func simpleName(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

// scopeChain returns an FQN's enclosing-scope segments, i.e. every segment
// but the last.
func scopeChain(fqn string) []string {
	segs := strings.Split(fqn, ".")
	if len(segs) <= 1 {
		return nil
	}
	return segs[:len(segs)-1]
}

// commonPrefixLen reports how many leading segments a and b share.
func commonPrefixLen(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// scopeOverlap narrows candidates sharing ref's simple name down to those
// whose own scope chain shares the longest prefix with ref's enclosing
// scope chain, so "AuthService.login.validate" prefers the candidate def
// "AuthService.validate" over an unrelated "DataService.validate".
// When no candidate shares a leading scope segment with ref (for example a
// top-level reference), all tie at 0 and are all kept, matching the
// original flat (no-scope) behavior.
func scopeOverlap(ref extractor.Symbol, candidates []extractor.Symbol) []extractor.Symbol {
	if len(candidates) <= 1 {
		return candidates
	}
	refScope := scopeChain(ref.Name)
	best := -1
	for _, c := range candidates {
		if n := commonPrefixLen(scopeChain(c.Name), refScope); n > best {
			best = n
		}
	}
	out := make([]extractor.Symbol, 0, len(candidates))
	for _, c := range candidates {
		if commonPrefixLen(scopeChain(c.Name), refScope) == best {
			out = append(out, c)
		}
	}
	return out
}

// Build runs all eight phases and returns the populated, read-only graph
// alongside the history.RelationGraph it was scored against, which the
// query layer consumes for file_metadata's commit/issue counts.
func (b *Builder) Build() (*symbolgraph.Graph, *history.RelationGraph, error) {
	b.logger.Info().Str("phase", "history").Msg("walking repository history")
	rg, err := history.Walk(history.Config{
		RepoPath:           b.cfg.ProjectPath,
		Depth:              b.cfg.Depth,
		AuthorExcludeRegex: b.filters.ExcludeAuthor,
		CommitExcludeRegex: b.filters.ExcludeCommit,
		IssueRegex:         b.filters.Issue,
	})
	if err != nil {
		return nil, nil, apperr.New(apperr.KindHistory, "history walk failed", err)
	}

	files := b.filterFiles(rg.Files())

	b.logger.Info().Int("files", len(files)).Msg("starting parallel extraction")
	contexts, err := b.extractAll(files)
	if err != nil {
		return nil, nil, err
	}

	gt := buildGlobalTables(contexts)
	filterPointless(contexts, gt, b.cfg.SymbolLenLimit)

	g := symbolgraph.New()
	seedGraph(g, contexts)

	b.computeWeights(g, contexts, gt, rg)
	applyUniquenessFallback(g, contexts, gt)

	b.logger.Info().Int("files", len(g.Files())).Msg("build complete")
	return g, rg, nil
}

// filterFiles applies Phase 2's exclude_file_regex.
func (b *Builder) filterFiles(files []string) []string {
	if b.filters.ExcludeFile == nil {
		return files
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if !b.filters.ExcludeFile.MatchString(f) {
			out = append(out, f)
		}
	}
	return out
}

// extractAll runs Phase 3 over files using a bounded worker pool; each
// worker opens its own repo.Repo and resolves its own tree, per spec.md
// §5's no-shared-mutable-state contract. Results preserve files' order so
// downstream phases stay deterministic.
func (b *Builder) extractAll(files []string) ([]*fileContext, error) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]*fileContext, len(files))

	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	type job struct {
		idx  int
		path string
	}
	jobs := make(chan job, workers*2)

	g, gCtx := errgroup.WithContext(context.Background())
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			r, err := repo.Open(b.cfg.ProjectPath)
			if err != nil {
				return apperr.New(apperr.KindHistory, "open repository for extraction", err)
			}
			tree, err := r.Tree(b.cfg.CommitID)
			if err != nil {
				return apperr.New(apperr.KindHistory, "resolve tree for extraction", err)
			}
			for {
				select {
				case j, ok := <-jobs:
					if !ok {
						return nil
					}
					results[j.idx] = b.extractFile(tree, j.path)
				case <-gCtx.Done():
					return gCtx.Err()
				}
			}
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i, f := range files {
			select {
			case jobs <- job{idx: i, path: f}:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*fileContext, 0, len(files))
	for _, c := range results {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// extractFile runs Phase 3's (a)-(d) steps for one path, demoting every
// failure to a debug log and returning nil (the file is dropped) per
// spec.md §7's per-file, best-effort policy.
func (b *Builder) extractFile(tree *object.Tree, path string) *fileContext {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	r, lang, ok := b.registry.ForExtension(ext)
	if !ok {
		b.logger.Debug().Str("file", path).Msg("unknown extension, skipping")
		return nil
	}

	blobID, err := repo.BlobID(tree, path)
	if err != nil {
		b.logger.Debug().Err(err).Str("file", path).Msg("resolving blob id")
		return nil
	}

	if b.cache != nil {
		if syms, hit := b.cache.Get(path, blobID); hit {
			if b.cfg.SymbolLimit > 0 && len(syms) >= b.cfg.SymbolLimit {
				return nil
			}
			return &fileContext{path: path, symbols: syms}
		}
	}

	data, err := repo.Blob(tree, path)
	if err != nil {
		b.logger.Debug().Err(err).Str("file", path).Msg("reading blob")
		return nil
	}

	syms, err := extractor.Extract(r, lang, path, data)
	if err != nil {
		b.logger.Debug().Err(err).Str("file", path).Msg("extraction failed")
		return nil
	}

	if b.cfg.SymbolLimit > 0 && len(syms) >= b.cfg.SymbolLimit {
		b.logger.Debug().Str("file", path).Int("symbols", len(syms)).Msg("symbol_limit exceeded, dropping file")
		return nil
	}

	if b.cache != nil {
		if err := b.cache.Set(path, blobID, syms); err != nil {
			b.logger.Debug().Err(err).Str("file", path).Msg("writing cache entry")
		}
	}

	return &fileContext{path: path, symbols: syms}
}

func buildGlobalTables(contexts []*fileContext) *globalTables {
	defs := make(map[string][]extractor.Symbol)
	refs := make(map[string][]extractor.Symbol)
	for _, ctx := range contexts {
		for _, s := range ctx.symbols {
			switch s.Kind {
			case extractor.DEF:
				defs[simpleName(s.Name)] = append(defs[simpleName(s.Name)], s)
			case extractor.REF:
				refs[simpleName(s.Name)] = append(refs[simpleName(s.Name)], s)
			}
		}
	}
	uniqueDefs := make(map[string]struct{})
	for name, ds := range defs {
		if len(ds) == 1 {
			uniqueDefs[name] = struct{}{}
		}
	}
	return &globalTables{defs: defs, refs: refs, uniqueDefs: uniqueDefs}
}

// filterPointless applies Phase 5 in place.
func filterPointless(contexts []*fileContext, gt *globalTables, lenLimit int) {
	for _, ctx := range contexts {
		filtered := make([]extractor.Symbol, 0, len(ctx.symbols))
		for _, s := range ctx.symbols {
			if len(s.Name) <= lenLimit {
				continue
			}
			switch s.Kind {
			case extractor.DEF:
				if len(gt.refs[simpleName(s.Name)]) == 0 {
					continue
				}
			case extractor.REF:
				if len(gt.defs[simpleName(s.Name)]) == 0 {
					continue
				}
			}
			filtered = append(filtered, s)
		}
		ctx.symbols = filtered
	}
}

// seedGraph applies Phase 6.
func seedGraph(g *symbolgraph.Graph, contexts []*fileContext) {
	for _, ctx := range contexts {
		g.AddFile(ctx.path)
		for _, s := range ctx.symbols {
			g.AddSymbol(s)
			g.LinkFileToSymbol(ctx.path, s.ID)
		}
	}
}

type scoredDef struct {
	def   extractor.Symbol
	score int
}

// computeWeights applies Phase 7.
func (b *Builder) computeWeights(g *symbolgraph.Graph, contexts []*fileContext, gt *globalTables, rg *history.RelationGraph) {
	totalFiles := len(contexts)
	if totalFiles == 0 {
		return
	}

	refCountByFile := make(map[string]int)
	for _, ctx := range contexts {
		for _, s := range ctx.symbols {
			if s.Kind == extractor.REF {
				refCountByFile[ctx.path]++
			}
		}
	}

	validLimit := math.Ceil(float64(totalFiles) * b.cfg.CommitSizeLimitRatio)
	validCommitsCache := make(map[string]map[string]struct{})
	validCommitsOf := func(path string) map[string]struct{} {
		if set, ok := validCommitsCache[path]; ok {
			return set
		}
		set := make(map[string]struct{})
		for _, c := range rg.FileRelatedCommits(path) {
			if float64(rg.CommitFileCount(c)) < validLimit {
				set[c] = struct{}{}
			}
		}
		validCommitsCache[path] = set
		return set
	}

	n := float64(totalFiles)
	defLimit := b.cfg.DefLimit
	if defLimit <= 0 {
		defLimit = 16
	}

	for _, ctx := range contexts {
		F := ctx.path
		vcF := validCommitsOf(F)

		for _, r := range ctx.symbols {
			if r.Kind != extractor.REF {
				continue
			}
			candidates := gt.defs[simpleName(r.Name)]
			if len(candidates) == 0 {
				continue
			}
			candidates = scopeOverlap(r, candidates)

			buckets := make(map[int][]scoredDef)
			maxScore := -1

			for _, d := range candidates {
				G := d.File
				vcG := validCommitsOf(G)

				var preScore float64
				intersected := 0
				for c := range vcF {
					if _, ok := vcG[c]; ok {
						intersected++
						tc := float64(rg.CommitFileCount(c))
						preScore += (n - tc) / n
					}
				}
				if intersected == 0 {
					continue
				}

				refCountG := refCountByFile[G]
				if refCountG == 0 {
					refCountG = 1
				}

				divided := preScore / float64(refCountG)
				score := 0
				if divided > 0 {
					score = int(math.Floor(divided))
					if score == 0 {
						score = 1
					}
				}
				if score == 0 {
					continue
				}

				buckets[score] = append(buckets[score], scoredDef{def: d, score: score})
				if score > maxScore {
					maxScore = score
				}
			}

			if maxScore < 0 {
				continue
			}

			created := 0
			for s := maxScore; s >= 1 && created < defLimit; s-- {
				for _, cand := range buckets[s] {
					if created >= defLimit {
						break
					}
					g.LinkSymbolToSymbol(r.ID, cand.def.ID)
					g.EnhanceSymbolToSymbol(r.ID, cand.def.ID, cand.score)
					created++
				}
			}
		}
	}
}

// applyUniquenessFallback applies Phase 8: a globally unique DEF with no
// outgoing edges links directly to every REF sharing its name, with a
// nominal weight of 1 (co-edit evidence was too sparse to score this
// candidate in Phase 7, but the name itself is unambiguous).
func applyUniquenessFallback(g *symbolgraph.Graph, contexts []*fileContext, gt *globalTables) {
	for _, ctx := range contexts {
		for _, s := range ctx.symbols {
			if s.Kind != extractor.DEF {
				continue
			}
			if _, unique := gt.uniqueDefs[simpleName(s.Name)]; !unique {
				continue
			}
			if len(g.ListReferencesByDefinition(s.ID)) > 0 {
				continue
			}
			for _, ref := range gt.refs[simpleName(s.Name)] {
				g.LinkSymbolToSymbol(s.ID, ref.ID)
				g.EnhanceSymbolToSymbol(s.ID, ref.ID, 1)
			}
		}
	}
}
