package respectcircle

import _ "embed"

// DemoSeed is the dataset restored by a demo reset when no
// DEMO_SEED_S3_KEY or DEMO_RESET_COMMAND is configured.
//
//go:embed seed/demo.yaml
var DemoSeed []byte
