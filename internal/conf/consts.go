// conf/consts.go hard coded constants
package conf

const (
	SampleRate  = 44100 // Sample rate of the audio fed to the detection pipeline
	BitDepth    = 16    // Bit depth of captured audio
	NumChannels = 1     // Number of channels of the audio fed to the detection pipeline

	DefaultQueueSize = 16 // Bounded pending-frame queue length when unset
)
