package script

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/dshills/switchboard"
)

// Ext is the script file extension.
const Ext = ".lua"

// LoadDir loads every script in dir. See LoadFS.
func LoadDir(ctx context.Context, dir string, opts ...Option) ([]*Component, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return LoadFS(ctx, os.DirFS(dir), opts...)
}

// LoadFS loads every *.lua file at the root of fsys, sorted by name. A
// script that fails to load is reported and skipped; the others are still
// returned.
func LoadFS(ctx context.Context, fsys fs.FS, opts ...Option) ([]*Component, error) {
	names, err := fs.Glob(fsys, "*"+Ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var (
		comps []*Component
		errs  error
	)
	for _, name := range names {
		code, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		id := strings.TrimSuffix(path.Base(name), Ext)
		c, err := New(ctx, id, string(code), opts...)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		comps = append(comps, c)
	}
	return comps, errs
}

// Register registers comps with o and then wires their dependencies, so
// scripts may be listed in any order. Components whose registration fails
// are closed.
func Register(o *switchboard.Orchestrator, comps []*Component) error {
	var errs error
	registered := make([]*Component, 0, len(comps))
	for _, c := range comps {
		if err := o.RegisterComponent(c.ID(), c); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("register %s: %w", c.ID(), err))
			_ = c.state.Close()
			continue
		}
		registered = append(registered, c)
	}
	for _, c := range registered {
		for _, dep := range c.deps {
			if err := o.AddDependency(c.ID(), dep); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s depends on %s: %w", c.ID(), dep, err))
			}
		}
	}
	return errs
}
