package devicetree

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootxnu/go/models"
)

const (
	ReservedSlotName     = "MemoryMapReserved-0"
	RamdiskName          = "RAMDisk"
	FirmwareVersionName  = "firmware-version"
	ramdiskRangeValueLen = 16
)

type PatchParams struct {
	// HasRamdisk requires a reserved slot to exist.
	HasRamdisk  bool
	RamdiskAddr uint64
	RamdiskSize uint64

	FirmwareVersion string
}

// Patch returns a patched copy of src. Every reserved memory slot becomes the
// RAMDisk range and every firmware-version is replaced.
func Patch(src []byte, p PatchParams) ([]byte, error) {
	data := append([]byte(nil), src...)
	tree, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slots := tree.FindProperties(ReservedSlotName)
	if len(slots) == 0 && p.HasRamdisk {
		return nil, models.DeviceTreeErrorf(0, "no %s property to carry the ramdisk", ReservedSlotName)
	}
	for _, slot := range slots {
		if err := setRamdisk(slot, p.RamdiskAddr, p.RamdiskSize); err != nil {
			return nil, err
		}
	}
	if p.FirmwareVersion != "" {
		for _, fw := range tree.FindProperties(FirmwareVersionName) {
			if err := fw.SetString(p.FirmwareVersion); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

func setRamdisk(slot *Property, addr, size uint64) error {
	if len(slot.Value) < ramdiskRangeValueLen {
		return models.DeviceTreeErrorf(slot.Offset, "%s value is %d bytes, need %d", slot.Name, len(slot.Value), ramdiskRangeValueLen)
	}
	if err := slot.SetName(RamdiskName); err != nil {
		return errors.Wrap(err, "failed to rename reserved slot")
	}
	binary.LittleEndian.PutUint64(slot.Value[0:], addr)
	binary.LittleEndian.PutUint64(slot.Value[8:], size)
	return nil
}
