package bids

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/nifti2bids/internal/config"
	"github.com/nvandessel/nifti2bids/internal/logging"
	"github.com/nvandessel/nifti2bids/internal/table"
)

const (
	// DatasetDescriptionFile is the required top-level metadata file.
	DatasetDescriptionFile = "dataset_description.json"
	// ParticipantsFile lists the dataset's subjects.
	ParticipantsFile = "participants.tsv"
	// ParticipantID is the first column of participants.tsv.
	ParticipantID = "participant_id"
)

// GeneratedBy records the tool that produced a dataset.
type GeneratedBy struct {
	Name        string `json:"Name"`
	Version     string `json:"Version,omitempty"`
	Description string `json:"Description,omitempty"`
}

// DatasetDescription is the content of dataset_description.json.
type DatasetDescription struct {
	Name        string        `json:"Name"`
	BIDSVersion string        `json:"BIDSVersion"`
	DatasetType string        `json:"DatasetType,omitempty"`
	License     string        `json:"License,omitempty"`
	Authors     []string      `json:"Authors,omitempty"`
	GeneratedBy []GeneratedBy `json:"GeneratedBy,omitempty"`
}

// CreateDatasetDescription returns a description with the given name and
// BIDS version; an empty version means config.DefaultBIDSVersion.
func CreateDatasetDescription(name, bidsVersion string) DatasetDescription {
	if bidsVersion == "" {
		bidsVersion = config.DefaultBIDSVersion
	}
	return DatasetDescription{Name: name, BIDSVersion: bidsVersion}
}

// DatasetDescriptionFromConfig fills a description from the dataset
// section of the configuration.
func DatasetDescriptionFromConfig(cfg config.DatasetConfig) DatasetDescription {
	desc := CreateDatasetDescription(cfg.Name, cfg.BIDSVersion)
	desc.DatasetType = cfg.DatasetType
	desc.License = cfg.License
	desc.Authors = append([]string(nil), cfg.Authors...)
	return desc
}

// SaveDatasetDescription writes desc to dir/dataset_description.json and
// returns the path.
func SaveDatasetDescription(desc DatasetDescription, dir string, pl *logging.ProvenanceLogger) (string, error) {
	if desc.Name == "" || desc.BIDSVersion == "" {
		return "", fmt.Errorf("bids: dataset description needs Name and BIDSVersion")
	}
	path := filepath.Join(dir, DatasetDescriptionFile)
	if err := writeJSON(path, desc); err != nil {
		return "", err
	}
	pl.Log("write", map[string]any{"dst": path})
	return path, nil
}

// LoadDatasetDescription reads dir/dataset_description.json.
func LoadDatasetDescription(dir string) (DatasetDescription, error) {
	var desc DatasetDescription
	data, err := os.ReadFile(filepath.Join(dir, DatasetDescriptionFile))
	if err != nil {
		return desc, fmt.Errorf("bids: %w", err)
	}
	if err := json.Unmarshal(data, &desc); err != nil {
		return desc, fmt.Errorf("bids: parsing %s: %w", DatasetDescriptionFile, err)
	}
	return desc, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("bids: encoding %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bids: writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SubjectDirs returns the names of the sub-* directories in root, sorted.
func SubjectDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	var subjects []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "sub-") {
			subjects = append(subjects, e.Name())
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

// CreateParticipantsTSV builds the participants table from the sub-*
// directories in root and, when save is true, writes root/participants.tsv.
func CreateParticipantsTSV(root string, save bool, pl *logging.ProvenanceLogger) (*table.Table, error) {
	subjects, err := SubjectDirs(root)
	if err != nil {
		return nil, err
	}

	t := table.New([]string{ParticipantID})
	for _, s := range subjects {
		if err := t.AddRow([]string{s}); err != nil {
			return nil, err
		}
	}

	if save {
		path := filepath.Join(root, ParticipantsFile)
		if err := t.WriteTSVFile(path); err != nil {
			return nil, fmt.Errorf("bids: %w", err)
		}
		pl.Log("write", map[string]any{"dst": path, "participants": len(subjects)})
	}
	return t, nil
}
