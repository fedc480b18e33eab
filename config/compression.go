package config

// CompressionCfg
//   - Supported levels (zstd):
//     CompressFastest = 1
//     CompressDefault = 3
//     CompressBetter  = 7
//     CompressBest    = 11
type CompressionCfg struct {
	Level int `yaml:"level"`

	// ThresholdBytes is the minimum encoded payload size that triggers
	// compression; smaller payloads are stored raw. Default 10 KiB.
	ThresholdBytes int64 `yaml:"threshold"`
}

func (cfg *CompressionCfg) Enabled() bool {
	return cfg != nil
}
