package app

import (
	"os"
	"path/filepath"
	"testing"

	"horse.fit/stallednews/internal/evidence"
	"horse.fit/stallednews/internal/store"
)

const sunriseRegistration = "GGM/582/314/2022/57"

// isolateEnv keeps the developer's environment out of command tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STALLEDNEWS_ENV_FILE", "HORSE_ENV_FILE", "DATABASE_URL", "MIN_CONFIDENCE", "DEDUP_POLICY",
		"EXTRACT_WORKERS", "RELEVANCE_HEAD_CHARS", "SCORING_RULES_FILE", "SN_RUNS_ROOT",
		"SN_DB_MIN_CONNS", "SN_DB_MAX_CONNS", "EVENT_RELEVANCE_GATE", "LOG_LEVEL", "ENVIRONMENT",
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
	t.Setenv("DETECT_LANGUAGE", "false")
	t.Setenv("LOG_LEVEL", "error")
}

func copyFixture(t *testing.T, dst string) string {
	t.Helper()

	src := filepath.FromSlash("../../testdata/corpus")
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, raw, 0o644)
	})
	if err != nil {
		t.Fatalf("copy fixture corpus: %v", err)
	}
	return filepath.Join(dst, corpusFileName)
}

func TestRunDispatch(t *testing.T) {
	t.Parallel()

	if code := Run(nil); code != 2 {
		t.Fatalf("expected usage exit code for no args, got %d", code)
	}
	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected help to succeed, got %d", code)
	}
	if code := Run([]string{"ingest"}); code != 2 {
		t.Fatalf("expected unknown command to be a usage error, got %d", code)
	}
}

func TestExtractUsageErrors(t *testing.T) {
	isolateEnv(t)

	corpus := copyFixture(t, t.TempDir())
	cases := map[string][]string{
		"missing corpus":  {"--project", "Sunrise Heights"},
		"missing project": {"--corpus", corpus},
		"bad policy":      {"--corpus", corpus, "--project", "Sunrise Heights", "--dedup-policy", "merge"},
		"bad confidence":  {"--corpus", corpus, "--project", "Sunrise Heights", "--min-confidence", "1.5"},
		"bad rera id":     {"--corpus", corpus, "--project", "Sunrise Heights", "--rera-id", "a/1"},
	}
	for name, args := range cases {
		if code := runExtract(args); code != 2 {
			t.Fatalf("%s: expected exit code 2, got %d", name, code)
		}
	}
	if store.Exists(filepath.Dir(corpus)) {
		t.Fatalf("usage errors must not write artifacts")
	}
}

func TestExtractMissingCorpusIsRuntimeFailure(t *testing.T) {
	isolateEnv(t)

	code := runExtract([]string{"--corpus", filepath.Join(t.TempDir(), "evidence.json"), "--project", "Sunrise Heights"})
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestExtractThenValidate(t *testing.T) {
	isolateEnv(t)

	root := t.TempDir()
	runDir := filepath.Join(root, "sunrise")
	corpus := copyFixture(t, runDir)

	code := runExtract([]string{
		"--corpus", corpus,
		"--project", "Sunrise Heights",
		"--city", "Gurugram",
		"--rera-id", sunriseRegistration,
		"--workers", "2",
	})
	if code != 0 {
		t.Fatalf("extract failed with exit code %d", code)
	}

	artifacts, err := store.Read(runDir)
	if err != nil {
		t.Fatalf("store.Read failed: %v", err)
	}
	if len(artifacts.Deduped) != 4 || artifacts.Manifest == nil || artifacts.Manifest.CorpusPath != corpus {
		t.Fatalf("unexpected artifacts: deduped=%d manifest=%+v", len(artifacts.Deduped), artifacts.Manifest)
	}

	if code := runValidate([]string{"--dir", root}); code != 0 {
		t.Fatalf("expected fresh run to validate, got exit code %d", code)
	}

	tampered := artifacts.Deduped
	tampered[0].Claim = "Possession was handed over to every buyer on 01.12.2019."
	if _, err := store.Write(artifacts.Raw, tampered, runDir); err != nil {
		t.Fatalf("store.Write failed: %v", err)
	}
	if code := runValidate([]string{"--run", runDir}); code != 1 {
		t.Fatalf("expected fabricated claim to fail validation, got exit code %d", code)
	}
}

func TestExtractCollapsePolicyFlag(t *testing.T) {
	isolateEnv(t)

	runDir := t.TempDir()
	corpus := copyFixture(t, runDir)
	out := filepath.Join(runDir, "collapsed")

	code := runExtract([]string{
		"--corpus", corpus,
		"--out", out,
		"--project", "Sunrise Heights",
		"--rera-id", sunriseRegistration,
		"--dedup-policy", "collapse",
	})
	if code != 0 {
		t.Fatalf("extract failed with exit code %d", code)
	}
	artifacts, err := store.Read(out)
	if err != nil {
		t.Fatalf("store.Read failed: %v", err)
	}
	if len(artifacts.Deduped) != 3 || artifacts.Manifest.DedupPolicy != "collapse" {
		t.Fatalf("unexpected collapsed run: deduped=%d policy=%q", len(artifacts.Deduped), artifacts.Manifest.DedupPolicy)
	}
}

func TestResolveProjectInput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.json")
	mustWriteFile(t, path, `{"project_name":"Sunrise Heights","city":"Gurugram","rera_id":"GGM/582/314/2022/57"}`)

	input, err := resolveProjectInput(path, "", "Gurgaon", "")
	if err != nil {
		t.Fatalf("resolveProjectInput failed: %v", err)
	}
	if input.ProjectName != "Sunrise Heights" || input.City != "Gurgaon" || input.RegistrationID != sunriseRegistration {
		t.Fatalf("unexpected input: %+v", input)
	}

	if _, err := resolveProjectInput("", "", "Gurugram", ""); err == nil {
		t.Fatalf("expected missing project name to fail")
	}
	if _, err := resolveProjectInput(filepath.Join(t.TempDir(), "missing.json"), "X Y", "", ""); err == nil {
		t.Fatalf("expected missing project file to fail")
	}
}

func TestTextifyCommand(t *testing.T) {
	isolateEnv(t)

	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "sources", "note.txt"), "Sunrise Heights possession promised by 31.12.2021.")
	corpus := filepath.Join(dir, corpusFileName)
	mustWriteFile(t, corpus, `[{"doc_id":"note","url":"https://example.com/note","raw_path":"sources/note.txt","text_chars":0}]`)

	if code := runTextify([]string{"--corpus", corpus}); code != 0 {
		t.Fatalf("textify failed with exit code %d", code)
	}

	docs, err := evidence.LoadCorpus(corpus)
	if err != nil {
		t.Fatalf("LoadCorpus failed: %v", err)
	}
	if len(docs) != 1 || docs[0].TextPath != filepath.Join(dir, "texts", "note.txt") || docs[0].TextChars == 0 || docs[0].RawHash == "" {
		t.Fatalf("unexpected textified corpus: %+v", docs)
	}

	if code := runTextify(nil); code != 2 {
		t.Fatalf("expected missing --corpus to be a usage error, got %d", code)
	}
}

func TestTextifyThenExtractWithRelativeCorpus(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	runDir := filepath.Join("runs", "x")
	mustWriteFile(t, filepath.Join(runDir, "sources", "order.txt"),
		"Sunrise Heights, Gurugram: the Authority ordered the registration suspended on 27.06.2022 for non-compliance.")
	corpus := filepath.Join(runDir, corpusFileName)
	mustWriteFile(t, corpus, `[{"doc_id":"order","url":"https://haryanarera.gov.in/orders/7","raw_path":"sources/order.txt","text_chars":0}]`)

	// The second pass reloads the rewritten corpus and must find the same files.
	for pass := 0; pass < 2; pass++ {
		if code := runTextify([]string{"--corpus", corpus}); code != 0 {
			t.Fatalf("textify pass %d failed with exit code %d", pass, code)
		}
	}

	docs, err := evidence.LoadCorpus(corpus)
	if err != nil {
		t.Fatalf("LoadCorpus failed: %v", err)
	}
	if len(docs) != 1 || docs[0].TextPath != filepath.Join(runDir, "texts", "order.txt") {
		t.Fatalf("unexpected text path after textify: %+v", docs)
	}

	if code := runExtract([]string{"--corpus", corpus, "--project", "Sunrise Heights", "--city", "Gurugram"}); code != 0 {
		t.Fatalf("extract failed with exit code %d", code)
	}
	artifacts, err := store.Read(runDir)
	if err != nil {
		t.Fatalf("store.Read failed: %v", err)
	}
	if len(artifacts.Deduped) != 1 || artifacts.Deduped[0].Date != "2022-06-27" {
		t.Fatalf("expected the suspension order to survive textify, got %+v", artifacts.Deduped)
	}
	if artifacts.Manifest == nil || artifacts.Manifest.Stats["read_errors"] != 0 {
		t.Fatalf("unexpected manifest: %+v", artifacts.Manifest)
	}
}
