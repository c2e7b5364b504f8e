// Package luascript discovers scripts written in Lua from a directory tree.
//
// Every *.lua file below the directory is one script, named after the file
// without its extension. A first line of the form
//
//	-- name: <script name>
//
// overrides the name.
package luascript

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/script"
)

const (
	extension  = ".lua"
	nameHeader = "-- name:"
)

// Provider discovers Lua scripts on every call, so files added, edited, or
// removed are picked up by the next dispatch.
type Provider struct {
	dir string
}

// NewProvider returns a Provider reading scripts from dir.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// Dir returns the directory scripts are discovered from.
func (p *Provider) Dir() string {
	return p.dir
}

// Scripts implements script.Provider. A missing directory yields no scripts.
// Files are returned in lexical path order.
func (p *Provider) Scripts(ctx context.Context) ([]script.Script, error) {
	if _, err := os.Stat(p.dir); errors.Is(err, fs.ErrNotExist) {
		log.Debug(log.CatScript, "Script directory does not exist", "dir", p.dir)
		return nil, nil
	}

	var scripts []script.Script
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), extension) {
			return nil
		}
		s, err := load(path)
		if err != nil {
			return err
		}
		scripts = append(scripts, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover lua scripts in %s: %w", p.dir, err)
	}

	log.Debug(log.CatScript, "Discovered lua scripts", "dir", p.dir, "count", len(scripts))
	return scripts, nil
}

func load(path string) (*Script, error) {
	source, err := os.ReadFile(path) // #nosec G304 -- path comes from walking the configured script directory
	if err != nil {
		return nil, err
	}
	name := headerName(source)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &Script{name: name, path: path, source: string(source)}, nil
}

func headerName(source []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(source))
	if !sc.Scan() {
		return ""
	}
	line := strings.TrimSpace(sc.Text())
	if !strings.HasPrefix(line, nameHeader) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(line, nameHeader))
}
