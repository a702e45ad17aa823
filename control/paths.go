package control

import "fmt"

// Sysfs path templates matching the standard IIO kernel layout under
// /sys/bus/iio/devices.
const (
	devFilePathFmt        = "/dev/iio:device%d"
	bufferEnablePathFmt   = "/sys/bus/iio/devices/iio:device%d/buffer/enable"
	currentTriggerPathFmt = "/sys/bus/iio/devices/iio:device%d/trigger/current_trigger"
	samplingFreqPathFmt   = "/sys/bus/iio/devices/iio:device%d/%s_sampling_frequency"
)

func devFilePath(deviceID int) string {
	return fmt.Sprintf(devFilePathFmt, deviceID)
}

func bufferEnablePath(deviceID int) string {
	return fmt.Sprintf(bufferEnablePathFmt, deviceID)
}

func currentTriggerPath(deviceID int) string {
	return fmt.Sprintf(currentTriggerPathFmt, deviceID)
}

func samplingFreqPath(deviceID int, tag string) string {
	return fmt.Sprintf(samplingFreqPathFmt, deviceID, tag)
}

func triggerName(internalName string, deviceID int) string {
	return fmt.Sprintf("%s-dev%d", internalName, deviceID)
}
