// Package config provides the experiment configuration for Compass.
//
// A single Config structure describes one experiment run: the input dataset,
// the output files, the target cluster count and the settings of each stage.
//
// # Sections
//
//   - Entropy: the low-entropy selection threshold
//   - Clustering: k-means seed, restarts and the selection split switch
//   - Bench: codec set, compression level, parallelism and scratch space
//   - Output: optional score log and metrics textfile
//   - Observability: log level/format and tracing
//
// # Loading
//
// Configuration files are YAML with ${VAR_NAME} environment substitution:
//
//	var cfg = config.Defaults()
//	if err := config.Load("compass.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//
// The CLI layers the file, COMPASS_* environment variables and flags with
// viper (see NewViper and FromViper). Later layers win.
package config
