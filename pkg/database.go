package hcaldigi

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// driverName maps the configured database flavour onto a database/sql driver.
func driverName(driver string) (string, error) {
	switch driver {
	case "mysql", "":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", &ErrConfiguration{Parameter: "db_driver", Reason: fmt.Sprintf("unknown driver %q", driver)}
	}
}

func ConnectToDatabase(config Configuration) (*sqlx.DB, error) {
	driver, err := driverName(config.DBDriver)
	if err != nil {
		return nil, err
	}
	var dbURI string
	switch driver {
	case "mysql":
		dbURI = fmt.Sprintf("%s:%s@(%s:%d)/%s?parseTime=true", config.User, config.Passwd, config.Host, config.Port, config.DBName)
	case "postgres":
		dbURI = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Passwd, config.DBName)
	case "sqlite":
		dbURI = config.DBName
	}
	db, err := sqlx.Connect(driver, dbURI)
	return db, err
}

// PedestalTable is the per-channel pedestal condition, keyed by raw digi id.
type PedestalTable struct {
	values map[uint32]int
}

func NewPedestalTable() *PedestalTable {
	return &PedestalTable{values: make(map[uint32]int)}
}

func (p *PedestalTable) Set(id uint32, pedestal int) {
	p.values[id] = pedestal
}

// Get returns the pedestal of id, or def when the table has no entry.
func (p *PedestalTable) Get(id uint32, def int) int {
	if v, ok := p.values[id]; ok {
		return v
	}
	return def
}

func (p *PedestalTable) Has(id uint32) bool {
	_, ok := p.values[id]
	return ok
}

func (p *PedestalTable) Len() int {
	return len(p.values)
}

// CorrectedADC subtracts the channel pedestal from a raw ADC value. The
// boolean is false when the pedestal was missing and 0 was used.
func (p *PedestalTable) CorrectedADC(id uint32, rawADC int) (int, bool) {
	pedestal, ok := p.values[id]
	return rawADC - pedestal, ok
}

// ChannelEnumerator lists every readout channel of the detector.
type ChannelEnumerator interface {
	Channels() []HcalDigiID
}

// DetectorMap relates the detector and electronics views of a channel.
type DetectorMap struct {
	toElecID map[HcalDigiID]HcalElectronicsID
	toDigiID map[HcalElectronicsID]HcalDigiID
	channels []HcalDigiID
}

func NewDetectorMap() *DetectorMap {
	return &DetectorMap{
		toElecID: make(map[HcalDigiID]HcalElectronicsID),
		toDigiID: make(map[HcalElectronicsID]HcalDigiID),
	}
}

func (d *DetectorMap) Add(digiID HcalDigiID, elecID HcalElectronicsID) error {
	if _, ok := d.toElecID[digiID]; ok {
		return fmt.Errorf("detector map: %v mapped twice", digiID)
	}
	if _, ok := d.toDigiID[elecID]; ok {
		return fmt.Errorf("detector map: %v mapped twice", elecID)
	}
	d.toElecID[digiID] = elecID
	d.toDigiID[elecID] = digiID
	d.channels = append(d.channels, digiID)
	return nil
}

func (d *DetectorMap) ElectronicsID(id HcalDigiID) (HcalElectronicsID, bool) {
	eid, ok := d.toElecID[id]
	return eid, ok
}

func (d *DetectorMap) DigiID(id HcalElectronicsID) (HcalDigiID, bool) {
	did, ok := d.toDigiID[id]
	return did, ok
}

func (d *DetectorMap) Len() int {
	return len(d.channels)
}

func (d *DetectorMap) Channels() []HcalDigiID {
	channels := make([]HcalDigiID, len(d.channels))
	copy(channels, d.channels)
	return channels
}

// GeometryChannels enumerates channels from the configured section sizes.
// Double-ended sections have two channels per bar.
type GeometryChannels []SectionGeometry

func (g GeometryChannels) Channels() []HcalDigiID {
	channels := make([]HcalDigiID, 0)
	for _, s := range g {
		ends := 1
		if s.Section.DoubleEnded() {
			ends = 2
		}
		for layer := s.FirstLayer; layer < s.FirstLayer+s.NumLayers; layer++ {
			for strip := 0; strip < s.NumStrips; strip++ {
				for end := 0; end < ends; end++ {
					channels = append(channels, NewHcalDigiID(s.Section, layer, strip, end))
				}
			}
		}
	}
	return channels
}

// Conditions groups what the producer needs from the conditions database.
type Conditions struct {
	Pedestals   *PedestalTable
	DetectorMap *DetectorMap
	Channels    ChannelEnumerator
}

// NoDBConditions are used when the run is processed without database.
func NoDBConditions(config Configuration) Conditions {
	return Conditions{
		Pedestals:   NewPedestalTable(),
		DetectorMap: NewDetectorMap(),
		Channels:    GeometryChannels(config.Sections),
	}
}

func LoadConditions(dbConn *sqlx.DB, runNumber int) (Conditions, error) {
	detectorMap, err := getDetectorMapFromDB(dbConn, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting detector map from database: %w", err)
		logger.Error(errMessage.Error())
		return Conditions{}, errMessage
	}
	pedestals, err := getPedestalsFromDB(dbConn, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting pedestals from database: %w", err)
		logger.Error(errMessage.Error())
		return Conditions{}, errMessage
	}
	conditions := Conditions{
		Pedestals:   pedestals,
		DetectorMap: detectorMap,
		Channels:    detectorMap,
	}
	if detectorMap.Len() == 0 {
		logger.Error(fmt.Sprintf("run %d has no channel map, using configured geometry", runNumber))
		conditions.Channels = GeometryChannels(configuration.Sections)
	}
	return conditions, nil
}

type ChannelMapEntry struct {
	Section   int `db:"section"`
	Layer     int `db:"layer"`
	Strip     int `db:"strip"`
	End       int `db:"readout_end"`
	Fiber     int `db:"fiber"`
	Elink     int `db:"elink"`
	Channel   int `db:"channel"`
	ChanIndex int `db:"chan_index"`
}

type PedestalEntry struct {
	DigiID   int64 `db:"digi_id"`
	Pedestal int   `db:"pedestal"`
}

func getDetectorMapFromDB(db *sqlx.DB, runNumber int) (*DetectorMap, error) {
	query := "SELECT section, layer, strip, readout_end, fiber, elink, channel, chan_index FROM hcal_channel_map " +
		"WHERE min_run <= ? and max_run >= ? ORDER BY section, layer, strip, readout_end"
	query = db.Rebind(query)

	if configuration.Verbosity > 0 {
		logger.Info("Channel map read from DB", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	entries := []ChannelMapEntry{}
	if err := db.Select(&entries, query, runNumber, runNumber); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	detectorMap := NewDetectorMap()
	for _, e := range entries {
		digiID := NewHcalDigiID(HcalSection(e.Section), e.Layer, e.Strip, e.End)
		elecID := NewHcalElectronicsID(e.Fiber, e.Elink, e.Channel, e.ChanIndex)
		if err := detectorMap.Add(digiID, elecID); err != nil {
			return nil, err
		}
	}
	return detectorMap, nil
}

func getPedestalsFromDB(db *sqlx.DB, runNumber int) (*PedestalTable, error) {
	query := db.Rebind("SELECT digi_id, pedestal FROM hcal_pedestals WHERE min_run <= ? and max_run >= ?")

	if configuration.Verbosity > 0 {
		logger.Info("Pedestals read from DB", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query, runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	table := NewPedestalTable()
	for rows.Next() {
		result := PedestalEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		table.Set(uint32(result.DigiID), result.Pedestal)
	}
	return table, rows.Err()
}
