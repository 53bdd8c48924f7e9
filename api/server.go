// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/luxfi/stakevault/metrics"
)

// NewServer builds the JSON-RPC server for the service, registered
// under the "vault" namespace. m may be nil when request metrics are
// not wired.
func NewServer(service *Service, m *metrics.Metrics) (*rpc.Server, error) {
	codec := json2.NewCodec()

	server := rpc.NewServer()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if m != nil {
		server.RegisterInterceptFunc(m.InterceptRequest)
		server.RegisterAfterFunc(m.AfterRequest)
	}
	if err := server.RegisterService(service, "vault"); err != nil {
		return nil, err
	}
	return server, nil
}
