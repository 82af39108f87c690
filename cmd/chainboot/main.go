/*
Copyright 2026 The Chainboot Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command chainboot is the bootstrapper/chainer engine's command-line
// entrypoint: the user-facing install/modify/repair/uninstall/layout/cache
// actions plus the hidden companion-process entry points a primary
// instance spawns for elevation and embedding (spec.md §6). Grounded on the
// teacher's cmd/crossplane/core kong Command tree.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// KongVars carries the default-value interpolations referenced by commonFlags'
// struct tags.
var KongVars = kong.Vars{ //nolint:gochecknoglobals // treated as constants
	"default_cache_root": defaultCacheRoot(),
}

// cli is the top-level command tree. Subcommands appear in help output in
// the order declared here.
type cli struct {
	Install   installCmd   `cmd:"" help:"Install the bundle."`
	Modify    modifyCmd    `cmd:"" help:"Modify an already-installed bundle."`
	Repair    repairCmd    `cmd:"" help:"Repair an already-installed bundle."`
	Uninstall uninstallCmd `cmd:"" help:"Uninstall the bundle."`
	Layout    layoutCmd    `cmd:"" help:"Lay out the bundle's payloads to a directory without installing."`
	Cache     cacheCmd     `cmd:"" help:"Cache the bundle's payloads without installing."`

	Elevated      elevatedCmd      `cmd:"" hidden:"" help:"Run as the elevated companion of a primary instance."`
	Unelevated    unelevatedCmd    `cmd:"" hidden:"" help:"Run as the unelevated companion spawned from an elevated instance."`
	Embedded      embeddedCmd      `cmd:"" hidden:"" help:"Run as a synchronous embedded child of a parent bundle."`
	EmbeddedAsync embeddedAsyncCmd `cmd:"" name:"embedded-async" hidden:"" help:"Run as a fire-and-forget embedded child of a parent bundle."`
	RunOnce       runOnceCmd       `cmd:"" hidden:"" help:"Resume a suspended apply after a reboot."`
}

func main() {
	logger := newLogger()

	parser := kong.Must(&cli{},
		kong.Name("chainboot"),
		kong.Description("A bootstrapper/chainer engine for installing bundles of heterogeneous nested installers."),
		kong.BindTo(logger, (*logging.Logger)(nil)),
		kong.UsageOnError(),
		KongVars,
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
