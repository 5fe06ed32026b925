// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package laikconfig provides a mechanism to construct a laik
// Instance from a shared configuration profile. It uses the
// configuration mechanism in package github.com/grailbio/base/config,
// and reads a default profile from $HOME/.laik/config. Configurations
// may be provisioned by hand or by any tool that writes that file's
// format.
package laikconfig

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/config"
	"github.com/grailbio/base/must"
	"github.com/grailbio/bigmachine"

	// Used to provide ec2system.System bigmachines for the
	// "bigmachine" profile below.
	_ "github.com/grailbio/bigmachine/ec2system"

	"github.com/grailbio/laik"
	"github.com/grailbio/laik/backend"
)

// Path determines the location of the laik profile read by Parse.
var Path = os.ExpandEnv("$HOME/.laik/config")

func init() {
	config.Register("laik", func(inst *config.Constructor) {
		var (
			workers int
			system  bigmachine.System
		)
		inst.IntVar(&workers, "workers", 1, "number of workers in the group; ignored for the single-process backend")
		inst.InstanceVar(&system, "system", "", "the bigmachine system used for multi-process execution; leave unset for a single-process instance")
		inst.Doc = "laik configures the distributed-container runtime"
		inst.New = func() (interface{}, error) {
			if system == nil {
				return laik.Init(backend.NewSingle()), nil
			}
			return nil, fmt.Errorf("laikconfig: a bigmachine-backed laik.Instance is obtained by calling backend.RunBigmachine directly from main, not from config.Must; set the \"system\" key only to select which system a manually invoked RunBigmachine call should use")
		}
	})
}

// Parse registers configuration flags and calls flag.Parse. It reads
// the laik configuration from Path defined in this package, and
// returns an Instance configured accordingly. Parse panics if
// instance construction fails.
//
// Parse only ever returns a single-process Instance (spec's
// backend.Single): a bigmachine-backed group requires spawning worker
// machines and running a shared entry point on each of them, which is
// the job of backend.RunBigmachine, not a single call that returns a
// ready Instance to the calling process. Use Parse for local
// development and testing profiles; call backend.RunBigmachine
// directly, with a bigmachine.System of the caller's choosing, for a
// multi-process run.
func Parse() *laik.Instance {
	config.RegisterFlags("", Path)
	flag.Parse()
	must.Nil(config.ProcessFlags())
	var inst *laik.Instance
	config.Must("laik", &inst)
	return inst
}
