package session

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/RMahshie/tinfoil/pkg/models"
)

// CatalogEntry is a well-known frequency worth testing against
type CatalogEntry struct {
	MHz         float64 `yaml:"mhz"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
}

func (e CatalogEntry) label() *models.FrequencyLabel {
	return &models.FrequencyLabel{Name: e.Name, Description: e.Description}
}

// DefaultCatalog lists interference-prone frequencies people actually
// worry about: broadcast, cellular, WiFi, GPS, ISM and friends
var DefaultCatalog = []CatalogEntry{
	// Broadcast
	{88.5, "FM Radio", "FM Radio Broadcasting"},
	{98.1, "FM Radio", "FM Radio Broadcasting"},
	{107.9, "FM Radio", "FM Radio Broadcasting"},
	{174, "VHF TV", "Television Broadcasting"},
	{470, "UHF TV", "Television Broadcasting"},
	// Cellular
	{700, "LTE Band 12", "LTE 700 MHz"},
	{850, "Cellular", "GSM/CDMA 850 Band"},
	{900, "Cellular", "GSM/EGSM Band"},
	{1700, "LTE Band 4", "AWS-1"},
	{1800, "Cellular", "DCS Band"},
	{1900, "Cellular", "PCS Band"},
	{2100, "Cellular", "UMTS/3G Band"},
	{2600, "LTE Band 7", "LTE 2600 MHz"},
	{3500, "5G Mid-Band", "C-Band 5G"},
	{4700, "5G High-Band", "mmWave 5G"},
	// WiFi
	{2412, "WiFi 2.4GHz", "Channel 1"},
	{2437, "WiFi 2.4GHz", "Channel 6"},
	{2462, "WiFi 2.4GHz", "Channel 11"},
	{5180, "WiFi 5GHz", "Channel 36"},
	{5220, "WiFi 5GHz", "Channel 44"},
	{5320, "WiFi 5GHz", "Channel 64"},
	{5500, "WiFi 5GHz", "Channel 100"},
	{5700, "WiFi 5GHz", "Channel 140"},
	// Bluetooth
	{2402, "Bluetooth", "Low Channels"},
	{2441, "Bluetooth", "Mid Channels"},
	{2480, "Bluetooth", "High Channels"},
	// GNSS
	{1575.42, "GPS L1", "Civil GPS"},
	{1227.60, "GPS L2", "Military GPS"},
	// ISM
	{433, "ISM 433MHz", "Remote Controls/Sensors"},
	{915, "ISM 915MHz", "ISM Band"},
	{2450, "ISM 2.4GHz", "ISM Band"},
	{5800, "ISM 5.8GHz", "ISM Band"},
	// Amateur radio
	{144, "2m Amateur", "Ham Radio"},
	{432, "70cm Amateur", "Ham Radio"},
	{1296, "23cm Amateur", "Ham Radio"},
	// Aviation and satellites
	{137, "NOAA Weather", "Weather Satellites"},
	{1090, "ADS-B", "Aircraft Tracking"},
	// Everything else
	{518, "Wireless Mic", "UHF Wireless Mics"},
	{865, "RFID UHF", "UHF RFID"},
	{2455, "RFID", "Microwave RFID"},
	{2400, "Medical", "Medical Telemetry"},
	{868, "Smart Home", "Z-Wave"},
	{908, "Smart Home", "ZigBee"},
}

type catalogFile struct {
	Frequencies []CatalogEntry `yaml:"frequencies"`
}

// LoadCatalog reads a YAML catalog of the form
//
//	frequencies:
//	  - mhz: 433
//	    name: ISM 433MHz
//	    description: Remote Controls/Sensors
func LoadCatalog(r io.Reader) ([]CatalogEntry, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode frequency catalog: %w", err)
	}
	if len(file.Frequencies) == 0 {
		return nil, fmt.Errorf("%w: catalog has no frequencies", models.ErrInvalidPlan)
	}
	for _, e := range file.Frequencies {
		if !models.MHz(e.MHz).InDeviceRange() {
			return nil, fmt.Errorf("%w: catalog entry %q at %.3f MHz outside device range", models.ErrInvalidPlan, e.Name, e.MHz)
		}
	}
	return file.Frequencies, nil
}

// LoadCatalogFile reads a YAML catalog from path
func LoadCatalogFile(path string) ([]CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frequency catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// sortedCatalog returns a copy ordered by frequency with exact duplicates
// removed
func sortedCatalog(entries []CatalogEntry) []CatalogEntry {
	out := make([]CatalogEntry, 0, len(entries))
	out = append(out, entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MHz < out[j].MHz })

	dedup := out[:0]
	for i, e := range out {
		if i > 0 && models.MHz(e.MHz) == models.MHz(dedup[len(dedup)-1].MHz) {
			continue
		}
		dedup = append(dedup, e)
	}
	return dedup
}
