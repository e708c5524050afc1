package filter

import (
	"debug/pe"
	"fmt"

	"github.com/mtrellis/conkit/internal/textbuf"
)

// collectImage reads the record's PE header for the architecture,
// subsystem and minimum OS version attributes. Files that are not PE
// images fail the collector, so image predicates reject them.
func (r *Record) collectImage() error {
	if r.have&haveImage != 0 {
		return nil
	}
	f, err := pe.Open(r.Path)
	if err != nil {
		return fmt.Errorf("filter: %s is not an executable image: %w", r.Name, err)
	}
	defer f.Close()

	r.imageArch = machineName(f.Machine)
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		r.imageSubsystem = subsystemName(oh.Subsystem)
		r.imageMinOS = packVersion(oh.MajorOperatingSystemVersion, oh.MinorOperatingSystemVersion)
	case *pe.OptionalHeader64:
		r.imageSubsystem = subsystemName(oh.Subsystem)
		r.imageMinOS = packVersion(oh.MajorOperatingSystemVersion, oh.MinorOperatingSystemVersion)
	default:
		// Object files carry no optional header.
		r.imageSubsystem = "unknown"
		r.imageMinOS = 0
	}
	r.have |= haveImage
	return nil
}

// packVersion folds a major.minor pair into one ordered integer, the
// same shape parseVersion produces.
func packVersion(major, minor uint16) int64 {
	return int64(major)<<16 | int64(minor)
}

var machineNames = map[uint16]string{
	pe.IMAGE_FILE_MACHINE_I386:  "i386",
	pe.IMAGE_FILE_MACHINE_AMD64: "amd64",
	pe.IMAGE_FILE_MACHINE_ARM:   "arm",
	pe.IMAGE_FILE_MACHINE_ARMNT: "armnt",
	pe.IMAGE_FILE_MACHINE_ARM64: "arm64",
	pe.IMAGE_FILE_MACHINE_IA64:  "ia64",
}

// machineName renders a PE machine code as its common short name,
// falling back to the hexadecimal code for exotic targets.
func machineName(m uint16) string {
	if n, ok := machineNames[m]; ok {
		return n
	}
	return "0x" + textbuf.FormatNumber(int64(m), 16, 4, '0')
}

func subsystemName(s uint16) string {
	switch s {
	case pe.IMAGE_SUBSYSTEM_NATIVE:
		return "native"
	case pe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
		return "windows"
	case pe.IMAGE_SUBSYSTEM_WINDOWS_CUI:
		return "console"
	case pe.IMAGE_SUBSYSTEM_POSIX_CUI:
		return "posix"
	case pe.IMAGE_SUBSYSTEM_WINDOWS_CE_GUI:
		return "windowsce"
	case pe.IMAGE_SUBSYSTEM_EFI_APPLICATION,
		pe.IMAGE_SUBSYSTEM_EFI_BOOT_SERVICE_DRIVER,
		pe.IMAGE_SUBSYSTEM_EFI_RUNTIME_DRIVER,
		pe.IMAGE_SUBSYSTEM_EFI_ROM:
		return "efi"
	default:
		return "unknown"
	}
}
