// Package compiler turns contract source text into a deployable artifact.
// The external compiler is a black box behind the Compiler interface; Solc
// shells out to the real toolchain and Cached memoizes the result for the
// process lifetime.
package compiler

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact is the compiled, deployable form of a contract.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

// CompilationError reports error-severity diagnostics from the compiler.
// It is fatal to the process: nothing can be deployed without an artifact.
type CompilationError struct {
	Diagnostics []string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compilation failed: %s", strings.Join(e.Diagnostics, "; "))
}

type Compiler interface {
	Compile(ctx context.Context, source string) (*Artifact, error)
}

// Solc drives the solc binary through its standard-json interface.
type Solc struct {
	// Path to the solc binary; "solc" resolves via PATH.
	Path string
	// EVMVersion pins the target fork; empty uses solc's default.
	EVMVersion string
}

type standardInput struct {
	Language string                    `json:"language"`
	Sources  map[string]sourceContent  `json:"sources"`
	Settings map[string]json.RawMessage `json:"settings"`
}

type sourceContent struct {
	Content string `json:"content"`
}

type standardOutput struct {
	Errors []struct {
		Severity         string `json:"severity"`
		FormattedMessage string `json:"formattedMessage"`
		Message          string `json:"message"`
	} `json:"errors"`
	Contracts map[string]map[string]struct {
		ABI json.RawMessage `json:"abi"`
		EVM struct {
			Bytecode struct {
				Object string `json:"object"`
			} `json:"bytecode"`
		} `json:"evm"`
	} `json:"contracts"`
}

func (s *Solc) Compile(ctx context.Context, source string) (*Artifact, error) {
	input := standardInput{
		Language: "Solidity",
		Sources:  map[string]sourceContent{"input.sol": {Content: source}},
		Settings: map[string]json.RawMessage{
			"outputSelection": json.RawMessage(`{"*":{"*":["abi","evm.bytecode.object"]}}`),
			"optimizer":       json.RawMessage(`{"enabled":true,"runs":200}`),
		},
	}
	if s.EVMVersion != "" {
		v, _ := json.Marshal(s.EVMVersion)
		input.Settings["evmVersion"] = v
	}

	blob, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode solc input: %w", err)
	}

	path := s.Path
	if path == "" {
		path = "solc"
	}
	cmd := exec.CommandContext(ctx, path, "--standard-json")
	cmd.Stdin = bytes.NewReader(blob)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w (%s)", path, err, strings.TrimSpace(stderr.String()))
	}

	var out standardOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("decode solc output: %w", err)
	}

	var diags []string
	for _, e := range out.Errors {
		if e.Severity != "error" {
			continue
		}
		msg := e.FormattedMessage
		if msg == "" {
			msg = e.Message
		}
		diags = append(diags, strings.TrimSpace(msg))
	}
	if len(diags) > 0 {
		return nil, &CompilationError{Diagnostics: diags}
	}

	return pickArtifact(out)
}

// pickArtifact selects the deployable contract from the compiler output: the
// one with the largest creation bytecode, which skips interfaces and
// libraries that compile to nothing.
func pickArtifact(out standardOutput) (*Artifact, error) {
	var (
		best     *Artifact
		bestSize int
	)
	for _, file := range out.Contracts {
		for name, contract := range file {
			code, err := hex.DecodeString(contract.EVM.Bytecode.Object)
			if err != nil {
				return nil, fmt.Errorf("decode %s bytecode: %w", name, err)
			}
			if len(code) <= bestSize {
				continue
			}
			parsed, err := abi.JSON(bytes.NewReader(contract.ABI))
			if err != nil {
				return nil, fmt.Errorf("parse %s abi: %w", name, err)
			}
			best = &Artifact{ContractName: name, ABI: parsed, Bytecode: code}
			bestSize = len(code)
		}
	}
	if best == nil {
		return nil, &CompilationError{Diagnostics: []string{"no deployable contract in output"}}
	}
	return best, nil
}

// Cached memoizes the first successful compilation for the process lifetime.
// Compilation is deterministic for fixed source, so later calls reuse the
// artifact and never reach the underlying compiler again.
type Cached struct {
	inner Compiler

	mu  sync.Mutex
	art *Artifact
}

func NewCached(inner Compiler) *Cached {
	return &Cached{inner: inner}
}

func (c *Cached) Compile(ctx context.Context, source string) (*Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.art != nil {
		return c.art, nil
	}
	art, err := c.inner.Compile(ctx, source)
	if err != nil {
		return nil, err
	}
	c.art = art
	return art, nil
}
