// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client assembles the sync client: the HTTP adapter, the local
// cache, the crypto workers, the authentication session and one store per
// resource type. A [Client] is what an embedding UI or the command-line tool
// holds on to.
package client
