package services

import (
	"context"

	"provisioner/pkg/plan"
	"provisioner/pkg/probe"
)

const ServiceName = "provisioner"

type Status struct {
	Status  string   `json:"status"`
	Service string   `json:"service"`
	Plans   []string `json:"plans"`
}

// Prober is satisfied by *probe.Prober.
type Prober interface {
	FFmpeg(ctx context.Context) (probe.Info, error)
}

type StatusServiceMethods interface {
	Status() Status
	FFmpeg(ctx context.Context) (probe.Info, error)
}

type statusService struct {
	prober Prober
}

func NewStatusService(prober Prober) StatusServiceMethods {
	if prober == nil {
		prober = probe.NewProber()
	}
	return &statusService{prober: prober}
}

func (s *statusService) Status() Status {
	return Status{
		Status:  "ok",
		Service: ServiceName,
		Plans:   plan.Names(),
	}
}

func (s *statusService) FFmpeg(ctx context.Context) (probe.Info, error) {
	return s.prober.FFmpeg(ctx)
}
