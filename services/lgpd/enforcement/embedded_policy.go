// Copyright (C) 2026 Licita AI (contato@licita.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bridges the build system and the runtime scanner. It uses the Go
embed package to bake data_classification_patterns.yaml directly into the
compiled binary so the detection rules are immutable at runtime and travel
with the executable.
*/

package enforcement

import (
	_ "embed"
)

// DataClassificationPatterns holds the raw byte content of the
// 'data_classification_patterns.yaml' file.
//
// Populated at compile time by the embed directive. Baking the YAML into the
// binary means the review rules cannot be weakened on the host filesystem
// without recompiling the application.
//
// Usage:
//
//	// Pass these bytes directly to yaml.Unmarshal
//	err := yaml.Unmarshal(enforcement.DataClassificationPatterns, &targetStruct)
//
//go:embed data_classification_patterns.yaml
var DataClassificationPatterns []byte
