// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models provides ready-made fixed-point operator sets.
//
// # Overview
//
//   - FCN: fully connected classifier with a ReLU latent update
//   - Linear: T(u, Qd) = W u + Qd with a bounded latent map
//
// # Basic Usage
//
//	ops, err := models.Build(models.Spec{
//	    Kind:      "fcn",
//	    InputDim:  784,
//	    Classes:   10,
//	    LatentDim: 46,
//	})
//	if err != nil {
//	    return err
//	}
//	engine := fpn.NewEngine(ops, nn.NewMSELoss(), fpn.DefaultConfig())
package models

import (
	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/models"
)

// Spec describes a model well enough to rebuild it.
type Spec = models.Spec

// Build constructs the operator set described by spec.
func Build(spec Spec) (fpn.OperatorSet, error) {
	return models.Build(spec)
}

// FCN is a fully connected fixed-point classifier.
type FCN = models.FCN

// FCNConfig configures NewFCN.
type FCNConfig = models.FCNConfig

// NewFCN builds an FCN and projects its bounded weights into range.
//
// Example:
//
//	model, err := models.NewFCN(models.FCNConfig{InputDim: 784, Classes: 10, Seed: 1})
func NewFCN(cfg FCNConfig) (*FCN, error) {
	return models.NewFCN(cfg)
}

// Linear is the linear fixed-point operator set.
type Linear = models.Linear

// LinearConfig configures NewLinear.
type LinearConfig = models.LinearConfig

// NewLinear builds a Linear model and projects its bounded weights into range.
func NewLinear(cfg LinearConfig) (*Linear, error) {
	return models.NewLinear(cfg)
}
