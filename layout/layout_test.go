package layout

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dendrite-systems/iiomux/catalog"
	"github.com/dendrite-systems/iiomux/sensor"
	"github.com/dendrite-systems/iiomux/sysfs"
)

func accelDescriptor() catalog.SensorDescriptor {
	return catalog.SensorDescriptor{
		FriendlyName: "accel",
		InternalName: "accel",
		Tag:          "accel",
		Type:         sensor.TypeAccelerometer,
		Channels: []catalog.ChannelDescriptor{
			{Name: "x", EnPath: "x_en", TypePath: "x_type", IndexPath: "x_index"},
			{Name: "y", EnPath: "y_en", TypePath: "y_type", IndexPath: "y_index"},
			{Name: "z", EnPath: "z_en", TypePath: "z_type", IndexPath: "z_index"},
		},
	}
}

func seedEnabledInt16Channel(gw *sysfs.MemGateway, desc catalog.ChannelDescriptor, index int) {
	gw.Set(desc.EnPath, "1")
	gw.Set(desc.TypePath, "le:s16/32>>0")
	gw.Set(desc.IndexPath, strconv.Itoa(index))
}

func TestRefreshSingleTriggerSensorThreeChannels(t *testing.T) {
	gw := sysfs.NewMemGateway()
	desc := accelDescriptor()
	cat := catalog.Catalog{desc}

	s := &sensor.Sensor{
		DeviceID:     0,
		CatalogIndex: 0,
		Channels:     make([]sensor.Channel, 3),
	}

	seedEnabledInt16Channel(gw, desc.Channels[0], 0)
	seedEnabledInt16Channel(gw, desc.Channels[1], 1)
	seedEnabledInt16Channel(gw, desc.Channels[2], 2)

	Refresh(gw, cat, []*sensor.Sensor{s}, 0)

	require.Equal(t, 2, s.Channels[0].Size)
	require.Equal(t, 0, s.Channels[0].Offset)
	require.Equal(t, 2, s.Channels[1].Size)
	require.Equal(t, 2, s.Channels[1].Offset)
	require.Equal(t, 2, s.Channels[2].Size)
	require.Equal(t, 4, s.Channels[2].Offset)
	require.Equal(t, 6, s.ReportSize())
}

func TestRefreshTwoSensorsOnSameDeviceInterleavedByIndex(t *testing.T) {
	gw := sysfs.NewMemGateway()

	gyroDesc := catalog.SensorDescriptor{
		Type: sensor.TypeGyroscope,
		Channels: []catalog.ChannelDescriptor{
			{EnPath: "gx_en", TypePath: "gx_type", IndexPath: "gx_index"},
			{EnPath: "gy_en", TypePath: "gy_type", IndexPath: "gy_index"},
			{EnPath: "gz_en", TypePath: "gz_type", IndexPath: "gz_index"},
		},
	}
	tempDesc := catalog.SensorDescriptor{
		Type: sensor.TypeTemperature,
		Channels: []catalog.ChannelDescriptor{
			{EnPath: "t_en", TypePath: "t_type", IndexPath: "t_index"},
		},
	}
	cat := catalog.Catalog{gyroDesc, tempDesc}

	gyro := &sensor.Sensor{DeviceID: 1, CatalogIndex: 0, Channels: make([]sensor.Channel, 3)}
	temp := &sensor.Sensor{DeviceID: 1, CatalogIndex: 1, Channels: make([]sensor.Channel, 1)}

	// Temperature claims index 0, gyro claims 1..3, to exercise ordering
	// that is not catalog order.
	seedEnabledInt16Channel(gw, tempDesc.Channels[0], 0)
	seedEnabledInt16Channel(gw, gyroDesc.Channels[0], 1)
	seedEnabledInt16Channel(gw, gyroDesc.Channels[1], 2)
	seedEnabledInt16Channel(gw, gyroDesc.Channels[2], 3)

	Refresh(gw, cat, []*sensor.Sensor{gyro, temp}, 1)

	require.Equal(t, 0, temp.Channels[0].Offset)
	require.Equal(t, 2, temp.Channels[0].Size)

	require.Equal(t, 2, gyro.Channels[0].Offset)
	require.Equal(t, 4, gyro.Channels[1].Offset)
	require.Equal(t, 6, gyro.Channels[2].Offset)

	require.Equal(t, 2, temp.ReportSize())
	require.Equal(t, 6, gyro.ReportSize())
}

func TestRefreshDisabledChannelGetsZeroSize(t *testing.T) {
	gw := sysfs.NewMemGateway()
	desc := accelDescriptor()
	cat := catalog.Catalog{desc}

	s := &sensor.Sensor{DeviceID: 0, CatalogIndex: 0, Channels: make([]sensor.Channel, 3)}

	seedEnabledInt16Channel(gw, desc.Channels[0], 0)
	gw.Set(desc.Channels[1].EnPath, "0")
	seedEnabledInt16Channel(gw, desc.Channels[2], 1)

	Refresh(gw, cat, []*sensor.Sensor{s}, 0)

	require.Equal(t, 2, s.Channels[0].Size)
	require.Equal(t, 0, s.Channels[1].Size)
	require.Equal(t, 2, s.Channels[2].Size)
	require.Equal(t, 2, s.Channels[2].Offset)
}

func TestRefreshUnreadableChannelTreatedAsDisabled(t *testing.T) {
	gw := sysfs.NewMemGateway()
	desc := accelDescriptor()
	cat := catalog.Catalog{desc}

	s := &sensor.Sensor{DeviceID: 0, CatalogIndex: 0, Channels: make([]sensor.Channel, 3)}

	gw.SetMissing(desc.Channels[0].EnPath)
	seedEnabledInt16Channel(gw, desc.Channels[1], 0)
	seedEnabledInt16Channel(gw, desc.Channels[2], 1)

	Refresh(gw, cat, []*sensor.Sensor{s}, 0)

	require.Equal(t, 0, s.Channels[0].Size)
	require.Equal(t, 2, s.Channels[1].Size)
	require.Equal(t, 2, s.Channels[2].Size)
}

func TestRefreshSharedScanIndexLastWriterWins(t *testing.T) {
	gw := sysfs.NewMemGateway()

	aDesc := catalog.SensorDescriptor{Channels: []catalog.ChannelDescriptor{
		{EnPath: "a_en", TypePath: "a_type", IndexPath: "a_index"},
	}}
	bDesc := catalog.SensorDescriptor{Channels: []catalog.ChannelDescriptor{
		{EnPath: "b_en", TypePath: "b_type", IndexPath: "b_index"},
	}}
	cat := catalog.Catalog{aDesc, bDesc}

	a := &sensor.Sensor{DeviceID: 0, CatalogIndex: 0, Channels: make([]sensor.Channel, 1)}
	b := &sensor.Sensor{DeviceID: 0, CatalogIndex: 1, Channels: make([]sensor.Channel, 1)}

	seedEnabledInt16Channel(gw, aDesc.Channels[0], 0)
	seedEnabledInt16Channel(gw, bDesc.Channels[0], 0)

	Refresh(gw, cat, []*sensor.Sensor{a, b}, 0)

	// b is processed after a, so it wins the shared index (last writer
	// wins, per the preserved original behavior).
	require.Equal(t, 0, a.Channels[0].Size)
	require.Equal(t, 2, b.Channels[0].Size)
}

func TestRefreshOutOfBoundsIndexSkipped(t *testing.T) {
	gw := sysfs.NewMemGateway()
	desc := accelDescriptor()
	cat := catalog.Catalog{desc}

	s := &sensor.Sensor{DeviceID: 0, CatalogIndex: 0, Channels: make([]sensor.Channel, 1)}

	gw.Set(desc.Channels[0].EnPath, "1")
	gw.Set(desc.Channels[0].TypePath, "le:s16/32>>0")
	gw.Set(desc.Channels[0].IndexPath, strconv.Itoa(sensor.MaxSensors*sensor.MaxChannels))

	Refresh(gw, cat, []*sensor.Sensor{s}, 0)

	require.Equal(t, 0, s.Channels[0].Size)
}
