package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	httpadapter "github.com/preslavrachev/nailgun/adapters/http"
	"github.com/preslavrachev/nailgun/config"
	"github.com/preslavrachev/nailgun/core"
	"github.com/preslavrachev/nailgun/entities"
)

type E2EConfig struct {
	BaseURL     string
	Username    string
	Password    string
	Insecure    bool
	Debug       bool
	PollRate    time.Duration
	TaskTimeout time.Duration
}

var globalConfig *E2EConfig

func parseFlags() *E2EConfig {
	if globalConfig != nil {
		return globalConfig
	}

	baseURL := flag.String("url", "http://localhost:3000", "URL of the server under test (fakesat or a Satellite)")
	username := flag.String("user", "admin", "Username")
	password := flag.String("password", "changeme", "Password")
	insecure := flag.Bool("insecure", false, "Skip TLS verification")
	debug := flag.Bool("debug", false, "Log every request")
	pollRate := flag.Duration("poll-rate", 500*time.Millisecond, "Delay between task polls")
	timeout := flag.Duration("task-timeout", time.Minute, "How long to wait for a task")
	flag.Parse()

	globalConfig = &E2EConfig{
		BaseURL:     *baseURL,
		Username:    *username,
		Password:    *password,
		Insecure:    *insecure,
		Debug:       *debug,
		PollRate:    *pollRate,
		TaskTimeout: *timeout,
	}

	return globalConfig
}

type TestResult struct {
	Name     string
	Passed   bool
	Error    string
	SubTests []TestResult
}

type TestRunner struct {
	config     *E2EConfig
	ctx        context.Context
	en         *core.Engine
	server     *config.ServerConfig
	results    []TestResult
	subtestErr error // Track subtest failures
	suffix     string
}

func NewTestRunner(cfg *E2EConfig, en *core.Engine, server *config.ServerConfig) *TestRunner {
	return &TestRunner{
		config:  cfg,
		ctx:     context.Background(),
		en:      en,
		server:  server,
		results: make([]TestResult, 0),
		suffix:  fmt.Sprintf("%d", time.Now().Unix()%100000),
	}
}

func (tr *TestRunner) Run(name string, testFunc func(*TestRunner) error) {
	fmt.Printf("🧪 Running test: %s\n", name)

	result := TestResult{Name: name, Passed: false}

	// Reset subtest error tracking for this test
	tr.subtestErr = nil

	if err := testFunc(tr); err != nil {
		result.Error = err.Error()
		fmt.Printf("❌ Test failed: %s - %v\n", name, err)
	} else if tr.subtestErr != nil {
		// Test function succeeded but subtests failed
		result.Error = fmt.Sprintf("subtests failed: %v", tr.subtestErr)
		fmt.Printf("❌ Test failed: %s - %v\n", name, tr.subtestErr)
	} else {
		result.Passed = true
		fmt.Printf("✅ Test passed: %s\n", name)
	}

	tr.results = append(tr.results, result)
}

func (tr *TestRunner) RunSubtest(parentName, name string, testFunc func(*TestRunner) error) {
	fmt.Printf("  🧪 Running subtest: %s/%s\n", parentName, name)

	if err := testFunc(tr); err != nil {
		// Store the first subtest error to fail the parent test
		if tr.subtestErr == nil {
			tr.subtestErr = fmt.Errorf("%s/%s: %v", parentName, name, err)
		}
		fmt.Printf("  ❌ Subtest failed: %s/%s - %v\n", parentName, name, err)
		return
	}

	fmt.Printf("  ✅ Subtest passed: %s/%s\n", parentName, name)
}

func (tr *TestRunner) GetResults() []TestResult {
	return tr.results
}

func (tr *TestRunner) AllPassed() bool {
	for _, result := range tr.results {
		if !result.Passed {
			return false
		}
	}
	return true
}

func (tr *TestRunner) entity(kind *core.Kind, values map[string]any) *core.Entity {
	return core.MustNew(kind, tr.server, values)
}

func (tr *TestRunner) create(kind *core.Kind, values map[string]any) (*core.Entity, error) {
	created, err := tr.en.Create(tr.ctx, tr.entity(kind, values), core.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind.Name, err)
	}
	fmt.Printf("DEBUG: Created %s\n", created)
	return created, nil
}

func (tr *TestRunner) poll() core.PollOptions {
	return core.PollOptions{PollRate: tr.config.PollRate, Timeout: tr.config.TaskTimeout}
}

// name makes names unique across runs against the same server
func (tr *TestRunner) name(base string) string {
	return base + "_" + tr.suffix
}

func setupEngine(cfg *E2EConfig) (*core.Engine, *config.ServerConfig, error) {
	server, err := config.NewServerConfig(cfg.BaseURL, &config.Auth{Username: cfg.Username, Password: cfg.Password}, "")
	if err != nil {
		return nil, nil, fmt.Errorf("invalid server: %v", err)
	}
	server.Verify.Disabled = cfg.Insecure
	return core.NewEngine(httpadapter.NewWithDebug(cfg.Debug)), server, nil
}

func statusOf(err error) int {
	var transportErr *core.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode
	}
	return 0
}

func testOrganizationCRUD(tr *TestRunner) error {
	org, err := tr.create(entities.Organization, map[string]any{"name": tr.name("e2e_org")})
	if err != nil {
		return err
	}

	tr.RunSubtest("OrganizationCRUD", "Read", func(tr *TestRunner) error {
		read, err := tr.en.Read(tr.ctx, tr.entity(entities.Organization, map[string]any{"id": org.ID()}), core.ReadOptions{})
		if err != nil {
			return err
		}
		if name, _ := read.Get("name"); name != tr.name("e2e_org") {
			return fmt.Errorf("read back name %v", name)
		}
		return nil
	})

	tr.RunSubtest("OrganizationCRUD", "Update", func(tr *TestRunner) error {
		if err := org.Set("description", "updated by e2e"); err != nil {
			return err
		}
		updated, err := tr.en.Update(tr.ctx, org, "description")
		if err != nil {
			return err
		}
		if desc, _ := updated.Get("description"); desc != "updated by e2e" {
			return fmt.Errorf("description is %v after update", desc)
		}
		return nil
	})

	tr.RunSubtest("OrganizationCRUD", "Delete", func(tr *TestRunner) error {
		result, err := tr.en.Delete(tr.ctx, org, core.DeleteOptions{Poll: tr.poll()})
		if err != nil {
			return err
		}
		if result.Task != nil {
			fmt.Printf("DEBUG: Delete task %s ended with %v\n", result.Task.ID, result.Task.Info["result"])
		}
		_, err = tr.en.Read(tr.ctx, org, core.ReadOptions{})
		if statusOf(err) != http.StatusNotFound {
			return fmt.Errorf("expected 404 after delete, got %v", err)
		}
		return nil
	})

	return nil
}

func testContentFlow(tr *TestRunner) error {
	org, err := tr.create(entities.Organization, map[string]any{"name": tr.name("e2e_content")})
	if err != nil {
		return err
	}
	product, err := tr.create(entities.Product, map[string]any{"organization": org})
	if err != nil {
		return err
	}
	repo, err := tr.create(entities.Repository, map[string]any{"product": product})
	if err != nil {
		return err
	}

	tr.RunSubtest("ContentFlow", "RepositoryDefaults", func(tr *TestRunner) error {
		if ct, _ := repo.Get("content_type"); ct != "yum" {
			return fmt.Errorf("content_type %v, want yum", ct)
		}
		return nil
	})

	tr.RunSubtest("ContentFlow", "SyncRepository", func(tr *TestRunner) error {
		result, err := tr.en.Invoke(tr.ctx, repo, "sync", nil, core.InvokeOptions{Poll: tr.poll()})
		if err != nil {
			return err
		}
		if result.Task == nil || result.Task.State != core.TaskSuccess {
			return fmt.Errorf("sync did not succeed: %+v", result.Task)
		}
		return nil
	})

	tr.RunSubtest("ContentFlow", "AsyncProductSync", func(tr *TestRunner) error {
		started, err := tr.en.Invoke(tr.ctx, product, "sync", nil, core.InvokeOptions{Async: true})
		if err != nil {
			return err
		}
		info, err := tr.en.PollTask(tr.ctx, tr.server, started.Task.ID, tr.poll())
		if err != nil {
			return err
		}
		fmt.Printf("DEBUG: Product sync task ended in state %v\n", info["state"])
		return nil
	})

	tr.RunSubtest("ContentFlow", "ScopedSearch", func(tr *TestRunner) error {
		q := core.NewSearchQuery().WithFilters(map[string]any{"organization_id": org.ID()})
		products, err := tr.en.SearchAll(tr.ctx, tr.entity(entities.Product, nil), q)
		if err != nil {
			return err
		}
		if len(products) != 1 {
			return fmt.Errorf("found %d products in the organization, want 1", len(products))
		}
		return nil
	})

	return nil
}

func testNestedSyncPlans(tr *TestRunner) error {
	org, err := tr.create(entities.Organization, map[string]any{"name": tr.name("e2e_plans")})
	if err != nil {
		return err
	}
	plan, err := tr.create(entities.SyncPlan, map[string]any{"organization": org, "interval": "daily"})
	if err != nil {
		return err
	}

	tr.RunSubtest("NestedSyncPlans", "ReadBelowParent", func(tr *TestRunner) error {
		_, err := tr.en.Read(tr.ctx, plan, core.ReadOptions{})
		return err
	})

	tr.RunSubtest("NestedSyncPlans", "Delete", func(tr *TestRunner) error {
		_, err := tr.en.Delete(tr.ctx, plan, core.DeleteOptions{Poll: tr.poll()})
		return err
	})

	return nil
}

func testGeneratedEntities(tr *TestRunner) error {
	// Entities given no values are generated in full, related entities included
	for _, kind := range []*core.Kind{entities.Architecture, entities.Domain, entities.Location, entities.Role, entities.LifecycleEnvironment} {
		tr.RunSubtest("GeneratedEntities", kind.Name, func(tr *TestRunner) error {
			_, err := tr.create(kind, nil)
			return err
		})
	}
	return nil
}

func testErrorHandling(tr *TestRunner) error {
	name := tr.name("e2e_dupe")
	if _, err := tr.create(entities.Organization, map[string]any{"name": name}); err != nil {
		return err
	}

	tr.RunSubtest("ErrorHandling", "UniqueName", func(tr *TestRunner) error {
		_, err := tr.create(entities.Organization, map[string]any{"name": name})
		if statusOf(err) != http.StatusUnprocessableEntity {
			return fmt.Errorf("expected 422, got %v", err)
		}
		return nil
	})

	tr.RunSubtest("ErrorHandling", "MissingEntity", func(tr *TestRunner) error {
		_, err := tr.en.Read(tr.ctx, tr.entity(entities.Organization, map[string]any{"id": 99999999}), core.ReadOptions{})
		if statusOf(err) != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %v", err)
		}
		return nil
	})

	tr.RunSubtest("ErrorHandling", "BadCredentials", func(tr *TestRunner) error {
		bad := tr.server.Clone()
		bad.Auth = &config.Auth{Username: tr.config.Username, Password: "not-the-password"}
		_, err := tr.en.Search(tr.ctx, core.MustNew(entities.Organization, bad, nil), core.SearchOptions{})
		if err == nil {
			fmt.Println("DEBUG: Server accepts anonymous requests, skipping")
			return nil
		}
		if statusOf(err) != http.StatusUnauthorized {
			return fmt.Errorf("expected 401, got %v", err)
		}
		return nil
	})

	return nil
}

func runE2ETests() error {
	cfg := parseFlags()
	fmt.Printf("Starting E2E tests against %s\n", cfg.BaseURL)
	fmt.Printf("Configuration: user=%s, insecure=%t, poll-rate=%v, task-timeout=%v\n",
		cfg.Username, cfg.Insecure, cfg.PollRate, cfg.TaskTimeout)

	en, server, err := setupEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup engine: %v", err)
	}

	testRunner := NewTestRunner(cfg, en, server)

	testRunner.Run("OrganizationCRUD", testOrganizationCRUD)
	testRunner.Run("ContentFlow", testContentFlow)
	testRunner.Run("NestedSyncPlans", testNestedSyncPlans)
	testRunner.Run("GeneratedEntities", testGeneratedEntities)
	testRunner.Run("ErrorHandling", testErrorHandling)

	// Print summary
	fmt.Printf("\n🏁 Test Summary:\n")
	passed := 0
	total := 0
	for _, result := range testRunner.GetResults() {
		total++
		if result.Passed {
			passed++
			fmt.Printf("✅ %s\n", result.Name)
		} else {
			fmt.Printf("❌ %s - %s\n", result.Name, result.Error)
		}
	}

	fmt.Printf("\nResults: %d/%d tests passed\n", passed, total)

	if !testRunner.AllPassed() {
		return fmt.Errorf("some tests failed")
	}

	return nil
}

func main() {
	if err := runE2ETests(); err != nil {
		fmt.Println("❌ Some E2E tests failed!")
		log.Fatal(err)
	}

	fmt.Println("✅ All E2E tests passed!")
}
