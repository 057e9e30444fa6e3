// Package main provides build targets for nailgun using Mage.
//
// Usage:
//
//	mage build        Compile satctl and fakesat to bin/
//	mage test         Run all unit tests
//	mage serve        Run fakesat on :3000 with an in-memory store
//	mage e2e          Run the end-to-end scenarios against a fresh fakesat
//	mage example      Run examples/create-organization against an in-process fake
//	mage clean        Remove build artifacts
//	mage install      Install satctl and fakesat to GOPATH/bin
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo     = "go"
	binaryDir = "bin"
	e2eAddr   = "127.0.0.1:3900"
)

var binaries = map[string]string{
	"satctl":  "./cmd/satctl",
	"fakesat": "./cmd/fakesat",
}

// Build compiles satctl and fakesat to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for name, dir := range binaries {
		if err := sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, name), dir); err != nil {
			return err
		}
	}
	return nil
}

// Test runs the unit tests of the root module.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// Serve runs fakesat on :3000 with an in-memory store.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, "fakesat"), "--db", ":memory:", "--debug")
}

// E2E starts fakesat with admin/changeme credentials and runs the
// e2e_testing scenarios against it.
func E2E() error {
	mg.Deps(Build)

	server := exec.Command(filepath.Join(binaryDir, "fakesat"), "--db", ":memory:", "--addr", e2eAddr)
	server.Env = append(os.Environ(), "NAILGUN_USERNAME=admin", "NAILGUN_PASSWORD=changeme")
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		_ = server.Process.Kill()
		_ = server.Wait()
	}()

	if err := waitForStatus("http://"+e2eAddr, 10*time.Second); err != nil {
		return err
	}
	return sh.RunV(binGo, "-C", "e2e_testing", "run", ".", "--url", "http://"+e2eAddr, "--poll-rate", "100ms")
}

// Example runs examples/create-organization against an in-process fake.
func Example() error {
	return sh.RunV(binGo, "-C", "examples/create-organization", "run", ".")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

// Install builds and copies the binaries to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	for name := range binaries {
		if err := sh.Copy(filepath.Join(gopath, "bin", name), filepath.Join(binaryDir, name)); err != nil {
			return err
		}
	}
	return nil
}

// waitForStatus polls the status endpoint until the server answers
func waitForStatus(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("fakesat did not answer on %s within %v", baseURL, timeout)
}
