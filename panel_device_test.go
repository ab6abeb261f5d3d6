package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPanelModels(t *testing.T) {
	byPID := make(map[uint16]panelModel)
	for _, m := range panelModels {
		byPID[m.productID] = m
	}

	assert.Equal(t, DeviceUnits{}, byPID[0xbb10].units)
	assert.Equal(t, DeviceUnits{EfisR: true}, byPID[0xbc1e].units)
	assert.Equal(t, DeviceUnits{EfisL: true}, byPID[0xbc1d].units)
	assert.Equal(t, DeviceUnits{EfisR: true, EfisL: true}, byPID[0xba01].units)
	assert.Len(t, byPID, 4, "product ids must be distinct")
}
