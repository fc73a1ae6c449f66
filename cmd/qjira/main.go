/* Copyright (c) 2025 Andrew Hamlin
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import "github.com/aahamlin/jira-reporting-scripts/internal/cli"

func main() { cli.Execute() }
