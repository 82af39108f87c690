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

package main

import (
	"context"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
)

// elevatedCmd runs as the elevated companion a primary, unelevated instance
// spawns to perform per-machine cache and execute actions (spec.md §6).
type elevatedCmd struct {
	companionFlags
}

// Run connects back to the parent and relays messages until told to stop.
func (c *elevatedCmd) Run(log logging.Logger) error {
	ch, err := c.connect(context.Background(), log)
	if err != nil {
		return err
	}
	return relayUntilTerminate(context.Background(), ch, log)
}
