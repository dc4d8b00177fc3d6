// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package pipeline

func availableMemory() uint64 { return 0 }

func freeSpace(string) (uint64, error) { return 0, errSpaceUnknown }
