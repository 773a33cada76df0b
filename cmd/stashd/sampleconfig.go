// Copyright (c) 2022-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

// sampleConfig is a string containing the sample config for stashd.
const sampleConfig = `[Application Options]

; ------------------------------------------------------------------------------
; General Application Settings
; ------------------------------------------------------------------------------
; appdata=~/.stashd
; configfile=~/.stashd/stashd.conf
; datadir=~/.stashd/data
; logdir=~/.stashd/logs
; debuglevel=info
;
; ------------------------------------------------------------------------------
; HTTP server settings
; ------------------------------------------------------------------------------
; listen=4443
; httpscert=~/.stashd/https.cert
; httpskey=~/.stashd/https.key
; csrfmaxage=86400
; sessionmaxage=86400
; readtimeout=5
; writetimeout=60
; reqbodysizelimit=3145728
;
; ------------------------------------------------------------------------------
; Database settings
; ------------------------------------------------------------------------------
; The database password of the stashd user is read from the DBPASS env
; variable when a mysql database is used.
;
; db=mysql
; sessiondb=leveldb
; dbhost=localhost:3306
;
; CockroachDB settings
; dbrootcert=~/.cockroachdb/certs/clients/stashd/ca.crt
; dbcert=~/.cockroachdb/certs/clients/stashd/client.stashd.crt
; dbkey=~/.cockroachdb/certs/clients/stashd/client.stashd.key
; encryptionkey=~/.stashd/sbox.key
`
